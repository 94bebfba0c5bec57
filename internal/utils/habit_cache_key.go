package utils

// BuildHabitsListCacheKey keys the unfiltered habit list of one owner.
// Filtered lists are never cached, so a single key per owner is enough to
// invalidate on every write.
func BuildHabitsListCacheKey(ownerID string) string {
	return "habits:list:v1:owner=" + ownerID
}
