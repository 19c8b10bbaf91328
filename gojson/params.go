package gojson

import (
	"strings"
)

// InvalidParameterError is returned by ParseParameters when an entry of the
// parameter string is not recognized or has the wrong shape. Entry holds the
// offending entry exactly as it appeared in the parameter string.
type InvalidParameterError struct {
	Entry string
}

func (e *InvalidParameterError) Error() string {
	return "invalid parameter: " + e.Entry
}

// entry is one comma-delimited element of a parameter string, split into its
// NAME, KEY and VALUE positions. Empty KEY and VALUE segments are treated as
// absent.
type entry struct {
	raw       string
	name      string
	key       string
	value     string
	hasKey    bool
	hasValue  bool
	malformed bool
}

// ParseParameters parses a plugin parameter string. Either every entry is
// recognized and the resulting parameters are returned, or the first invalid
// entry is reported as an *InvalidParameterError.
func ParseParameters(s string) (*Parameters, error) {
	entries := tokenize(s)
	opts := make([]option, 0, len(entries))
	for _, e := range entries {
		opt, err := e.option()
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}

	var params Parameters
	for _, opt := range opts {
		opt(&params)
	}
	return &params, nil
}

// tokenize splits s into entries. A comma ends an entry unless it is escaped
// inside the VALUE position, which starts after the second '='.
func tokenize(s string) []entry {
	var entries []entry
	start, equals := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if equals == 2 && i+1 < len(s) && (s[i+1] == ',' || s[i+1] == '\\') {
				i++
			}
		case '=':
			equals++
		case ',':
			if raw := s[start:i]; raw != "" {
				entries = append(entries, splitEntry(raw))
			}
			start, equals = i+1, 0
		}
	}
	if raw := s[start:]; raw != "" {
		entries = append(entries, splitEntry(raw))
	}
	return entries
}

func splitEntry(raw string) entry {
	e := entry{raw: raw}
	parts := strings.SplitN(raw, "=", 3)
	e.name = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		e.key = parts[1]
		e.hasKey = e.key != ""
	}
	if len(parts) > 2 {
		if strings.Contains(parts[2], "=") {
			e.malformed = true
		}
		e.value = unescape(parts[2])
		e.hasValue = e.value != ""
	}
	return e
}

// unescape resolves the "\," and "\\" escapes of a VALUE. Any other
// backslash is kept as is.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == ',' || s[i+1] == '\\') {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// option is a validated entry, ready to be applied to a Parameters.
type option func(*Parameters)

func (e entry) option() (option, error) {
	if !e.malformed && !e.hasValue {
		switch e.name {
		case "default_package_filename":
			stem := e.key
			return func(p *Parameters) {
				p.defaultPackageFilename = stem
			}, nil
		case "retain_enum_prefix":
			switch {
			case !e.hasKey, e.key == "true":
				return func(p *Parameters) {
					p.retainEnumPrefix = true
				}, nil
			case e.key == "false":
				return func(*Parameters) {}, nil
			}
		}
	}
	if !e.malformed && e.name == "extern_path" && e.hasKey && e.hasValue {
		ext := ExternPath{ProtoPath: e.key, GoPath: e.value}
		return func(p *Parameters) {
			p.externPaths = append(p.externPaths, ext)
		}, nil
	}
	return nil, &InvalidParameterError{Entry: e.raw}
}
