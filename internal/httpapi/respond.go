package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/apperrors"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/config"
)

type errorBody struct {
	Error   apperrors.Kind `json:"error"`
	Message string         `json:"message"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json field names rather than Go ones
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindInsufficientStock, apperrors.KindInvalidState, apperrors.KindInsufficientFunds:
		return http.StatusConflict
	case apperrors.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, funcName string, err error) {
	kind := apperrors.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		config.LogError(s.log, "httpapi", funcName, r.Method+" "+r.URL.Path, nil, err)
	}
	writeJSON(w, status, errorBody{Error: kind, Message: err.Error()})
}

// decode reads the JSON body into dst and validates it. Every failure is
// reported as a ValidationError.
func (s *Server) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.Invalid("body", err.Error())
	}
	if err := s.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return apperrors.Invalid(fieldPath(fe.Namespace()), "failed on "+fe.Tag())
		}
		return apperrors.Invalid("body", err.Error())
	}
	return nil
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
