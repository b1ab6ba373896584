package inspect

import (
	"mime"
	"strings"

	apperrors "echobin/pkg/errors"
)

const (
	mimeJSON      = "application/json"
	mimeForm      = "application/x-www-form-urlencoded"
	mimeMultipart = "multipart/form-data"
)

// Variant names the body representation chosen by Classify.
type Variant uint8

const (
	VariantEmpty Variant = iota
	VariantJSON
	VariantForm
	VariantMultipart
	VariantData
)

func (v Variant) String() string {
	switch v {
	case VariantEmpty:
		return "empty"
	case VariantJSON:
		return "json"
	case VariantForm:
		return "form"
	case VariantMultipart:
		return "multipart"
	case VariantData:
		return "data"
	default:
		return "unknown"
	}
}

// Body is a classified request body. Only the fields belonging to Variant
// are meaningful.
type Body struct {
	Variant Variant
	JSON    Value
	Form    Values
	Files   Files
	Data    string
}

// Classify picks the body representation from the declared content type.
// It never fails: decode problems fall back to the opaque data branch and
// are returned as diagnostics wrapping apperrors.ErrBodyDecode.
func Classify(contentType string, body []byte) (Body, []error) {
	ct := strings.TrimSpace(contentType)
	if ct == "" && len(body) == 0 {
		return Body{Variant: VariantEmpty}, nil
	}

	mediaType, params, perr := mime.ParseMediaType(ct)
	if perr != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
	}

	switch mediaType {
	case mimeJSON:
		v, err := ParseJSON(body)
		if err != nil {
			return dataBody(mediaType, body), []error{apperrors.Decode("json", "%v", err)}
		}
		return Body{Variant: VariantJSON, JSON: v}, nil

	case mimeForm:
		return Body{Variant: VariantForm, Form: DecodeQuery(string(body))}, nil

	case mimeMultipart:
		if perr != nil {
			return dataBody(mediaType, body), []error{apperrors.Decode("multipart", "content-type: %v", perr)}
		}
		boundary := params["boundary"]
		if boundary == "" {
			return dataBody(mediaType, body), []error{apperrors.Decode("multipart", "missing boundary parameter")}
		}
		form, files, diags, err := ExtractMultipart(body, boundary)
		if err != nil {
			return dataBody(mediaType, body), append(diags, err)
		}
		return Body{Variant: VariantMultipart, Form: form, Files: files}, diags
	}

	return dataBody(mediaType, body), nil
}

func dataBody(mediaType string, body []byte) Body {
	return Body{Variant: VariantData, Data: opaque(mediaType, body)}
}
