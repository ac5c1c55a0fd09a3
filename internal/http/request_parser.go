// Package http serves the budget ledger as server-rendered pages and htmx
// partials, plus a small JSON read API.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"gastos/internal/ledger"
)

// maxBodyBytes bounds what a form post may carry.
const maxBodyBytes = 64 << 10

var errBodyTooLarge = errors.New("request body too large")

// formValues holds the cleaned fields of a posted form.
type formValues url.Values

// Get returns the trimmed value of key without control characters.
func (f formValues) Get(key string) string {
	return sanitizeInput(url.Values(f).Get(key))
}

// readForm reads a urlencoded form or a flat JSON object into the same
// shape. JSON numbers keep their literal text so amounts are not rounded
// through float64.
func readForm(r *http.Request) (formValues, error) {
	if r.Body == nil {
		return formValues{}, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, errBodyTooLarge
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		v, err := url.ParseQuery(string(body))
		return formValues(v), err
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode json body: %w", err)
	}
	out := formValues{}
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			out[k] = []string{val}
		case json.Number:
			out[k] = []string{val.String()}
		case bool:
			out[k] = []string{fmt.Sprint(val)}
		}
	}
	return out, nil
}

// ParseSubmission reads the expense form. Field names follow the ledger
// package; expenseName is accepted as an alias of name for JSON clients.
func ParseSubmission(r *http.Request) (ledger.Submission, error) {
	f, err := readForm(r)
	if err != nil {
		return ledger.Submission{}, err
	}
	sub := ledger.Submission{
		ID:       f.Get("id"),
		Name:     f.Get(ledger.FieldName),
		Amount:   f.Get(ledger.FieldAmount),
		Category: f.Get(ledger.FieldCategory),
		Date:     f.Get(ledger.FieldDate),
	}
	if sub.Name == "" {
		sub.Name = f.Get("expenseName")
	}
	return sub, nil
}
