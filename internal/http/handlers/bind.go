package handlers

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/geocoder89/habithub/internal/apperr"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

var jsonNamesOnce sync.Once

// useJSONFieldNames makes validator report fields by their json tag, so
// clients see "isActive" rather than "IsActive".
func useJSONFieldNames() {
	jsonNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(sf reflect.StructField) string {
			name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return sf.Name
			}
			return name
		})
	})
}

// BindJSON decodes the body into out. Failures are validation errors, so they
// carry the same code as the checks the services run.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	useJSONFieldNames()

	if err := ctx.ShouldBindJSON(out); err != nil {
		RespondAppError(ctx, apperr.Validation("Invalid request body").WithDetails(bindDetails(err)))
		return false
	}

	return true
}

func bindDetails(err error) gin.H {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field:   fe.Field(),
				Rule:    fe.Tag(),
				Param:   fe.Param(),
				Message: ruleMessage(fe.Tag(), fe.Param()),
			})
		}
		return gin.H{"fields": fields}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		// Field is already the json path from the document root.
		return gin.H{
			"json":  "invalid_json_type",
			"field": typeErr.Field,
			"fields": []FieldError{{
				Field:   typeErr.Field,
				Rule:    "type",
				Message: "must be of type " + typeErr.Type.String(),
			}},
		}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	return gin.H{"reason": err.Error()}
}

// ruleMessage covers the tags used on the request types.
func ruleMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + param + " characters"
	default:
		return "failed " + rule + " validation"
	}
}
