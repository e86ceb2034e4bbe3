package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ParseJSON decodes a JSON string into v.
func ParseJSON(data string, v interface{}) error {
	return decodeJSON(strings.NewReader(data), v, false)
}

// ParseJSONBytes decodes a JSON byte slice into v.
func ParseJSONBytes(data []byte, v interface{}) error {
	return decodeJSON(bytes.NewReader(data), v, false)
}

// DecodeJSON decodes JSON from r with the shared decoder settings.
func DecodeJSON(r io.Reader, v interface{}) error {
	return decodeJSON(r, v, false)
}

// DecodeJSONStrict decodes JSON from r, rejecting unknown fields.
func DecodeJSONStrict(r io.Reader, v interface{}) error {
	return decodeJSON(r, v, true)
}

func decodeJSON(r io.Reader, v interface{}, disallowUnknown bool) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if disallowUnknown {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(v); err != nil {
		return err
	}

	// reject trailing data
	for {
		t, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if t != nil {
			return fmt.Errorf("unexpected extra JSON data")
		}
	}
}

// ToJSON marshals v to a JSON string.
func ToJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var (
	fenceOpenPattern  = regexp.MustCompile("^```(?:json)?\\s*")
	fenceClosePattern = regexp.MustCompile("\\s*```$")
	trailingCommas    = regexp.MustCompile(`,(\s*[\]}])`)
	fractionalAmount  = regexp.MustCompile(`"amount"\s*:\s*(\d+)\s*/\s*(\d+)`)
)

// StripJSONFences removes markdown code fences around a JSON document and
// extracts the outermost array or object.
func StripJSONFences(raw string) string {
	txt := strings.TrimSpace(raw)
	txt = fenceOpenPattern.ReplaceAllString(txt, "")
	txt = fenceClosePattern.ReplaceAllString(txt, "")
	txt = strings.TrimSpace(txt)

	if start, end := strings.Index(txt, "["), strings.LastIndex(txt, "]"); start != -1 && end > start {
		if objStart := strings.Index(txt, "{"); objStart == -1 || start < objStart {
			return txt[start : end+1]
		}
	}
	if start, end := strings.Index(txt, "{"), strings.LastIndex(txt, "}"); start != -1 && end > start {
		return txt[start : end+1]
	}
	return txt
}

// RepairLooseJSON fixes the JSON defects generative models commonly
// produce: trailing commas and fractional amount values like 1/2.
func RepairLooseJSON(raw string) string {
	txt := trailingCommas.ReplaceAllString(raw, "$1")
	txt = fractionalAmount.ReplaceAllStringFunc(txt, func(m string) string {
		parts := fractionalAmount.FindStringSubmatch(m)
		var num, den float64
		fmt.Sscanf(parts[1], "%f", &num)
		fmt.Sscanf(parts[2], "%f", &den)
		if den == 0 {
			return `"amount": 0`
		}
		return fmt.Sprintf(`"amount": %g`, num/den)
	})
	return txt
}
