package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
)

// urlList accepts either a single string or a list of strings.
type urlList []string

func (u *urlList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*u = nil
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var one string
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*u = urlList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("want a url or a list of urls")
	}
	*u = many
	return nil
}

// clean drops blank entries.
func (u urlList) clean() []string {
	out := make([]string, 0, len(u))
	for _, s := range u {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// number accepts a JSON number or a numeric string.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	*n = number(v)
	return nil
}

// request is the union of all endpoint bodies.
type request struct {
	PDFURLs   urlList `json:"pdf_urls"`
	ImageURLs urlList `json:"image_urls"`

	Start    *number `json:"start"`
	End      *number `json:"end"`
	Password string  `json:"password"`

	TargetKB  *number `json:"target_kb"`
	Tolerance *number `json:"tolerance"`
	Profile   string  `json:"profile"`

	Format  string  `json:"format"`
	Quality *number `json:"quality"`
	Width   *number `json:"width"`
	Height  *number `json:"height"`
	DPI     *number `json:"dpi"`
}

func decode(r *http.Request) (*request, error) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytes *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytes):
			return nil, err
		case errors.Is(err, io.EOF):
			return nil, badRequest("request body is empty")
		default:
			return nil, badRequest("invalid json: %v", err)
		}
	}
	return &req, nil
}

func intOr(n *number, def int) int {
	if n == nil {
		return def
	}
	return int(*n)
}

func floatOr(n *number, def float64) float64 {
	if n == nil {
		return def
	}
	return float64(*n)
}

// baseName derives an output name stem from a URL path.
func baseName(rawURL, fallback string) string {
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	name := path.Base(p)
	name = strings.TrimSuffix(name, path.Ext(name))
	if name == "" || name == "." || name == "/" || strings.Contains(name, ":") {
		return fallback
	}
	return name
}
