package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/camden-git/attendancebackend/apperrors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// CodeConfirmationRequired is returned when a destructive request lacks
// confirm=true.
const CodeConfirmationRequired = "CONFIRMATION_REQUIRED"

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// WriteError maps an error from the service layer onto a standardized
// response. Errors outside the taxonomy are logged and reported as 500
// without their text.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.CodeOf(err)
	switch code {
	case apperrors.CodeValidation:
		WriteAPIError(w, http.StatusBadRequest, string(code), err.Error())
	case apperrors.CodeNotFound:
		WriteAPIError(w, http.StatusNotFound, string(code), err.Error())
	case apperrors.CodeDuplicateKey, apperrors.CodeConflict, apperrors.CodeActiveSession:
		WriteAPIError(w, http.StatusConflict, string(code), err.Error())
	default:
		zap.L().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		WriteAPIError(w, http.StatusInternalServerError, string(apperrors.CodeUnknown), "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			zap.S().Errorf("Error encoding JSON response: %v", err)
		}
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json field names rather than Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON decodes the request body into dst and validates its struct
// tags. Failures come back as *apperrors.ValidationError.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := decodeBody(r, dst); err != nil {
		return err
	}
	return validateStruct(dst)
}

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.Validation("", "invalid request body: %v", err)
	}
	return nil
}

func validateStruct(dst interface{}) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return apperrors.Validation(fe.Field(), "failed '%s' validation", describeTag(fe))
	}
	return apperrors.Validation("", "%v", err)
}

func describeTag(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
