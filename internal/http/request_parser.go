// This file holds helpers for reading path variables, query parameters and
// JSON bodies. Every parse failure is an invalid-input error naming the
// offending field.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"famfin/internal/core"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
// An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if core.KindOf(err) != "" {
			return err
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.InvalidInput("body", "request body too large")
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			if core.IsDateType(typeErr.Type) {
				return core.InvalidInput(typeErr.Field, "unparseable date %s, expected YYYY-MM-DD", typeErr.Value)
			}
			return core.InvalidInput(typeErr.Field, "expected %s", typeErr.Type)
		}
		return core.InvalidInput("body", "malformed JSON: %v", err)
	}
	if dec.More() {
		return core.InvalidInput("body", "expected a single JSON object")
	}
	return nil
}

// pathID reads a positive integer path variable.
func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.InvalidInput(name, "must be a positive integer")
	}
	return id, nil
}

// queryDate reads an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, name string) (*core.Date, error) {
	return core.ParseOptionalDate(name, strings.TrimSpace(r.URL.Query().Get(name)))
}

func requiredQueryDate(r *http.Request, name string) (core.Date, error) {
	d, err := queryDate(r, name)
	if err != nil {
		return core.Date{}, err
	}
	if d == nil {
		return core.Date{}, core.InvalidInput(name, "is required")
	}
	return *d, nil
}

// queryUserID reads the optional userId parameter. Zero means the caller.
func queryUserID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("userId"))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.InvalidInput("userId", "must be a positive integer")
	}
	return id, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, core.InvalidInput(name, "must be true or false")
	}
	return v, nil
}
