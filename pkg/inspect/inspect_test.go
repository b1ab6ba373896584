package inspect

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "echobin/pkg/errors"
	"echobin/pkg/httpx"
)

func marshal(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

// encodeUnescaped encodes v the way response writers do, with HTML escaping
// off.
func encodeUnescaped(t *testing.T, v any) string {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	require.NoError(t, enc.Encode(v))
	return strings.TrimSuffix(buf.String(), "\n")
}

func TestNormalizeHeaders(t *testing.T) {
	h := NormalizeHeaders([]httpx.Field{
		{Name: "Host", Value: "example.test"},
		{Name: "X-Tag", Value: "a"},
		{Name: "Accept", Value: "*/*"},
		{Name: "x-tag", Value: "b"},
		{Name: "X-Bad", Value: "caf\xe9"},
	})

	assert.Equal(t, []string{"host", "x-tag", "accept", "x-bad"}, h.Names())
	v, ok := h.Get("X-TAG")
	require.True(t, ok)
	assert.Equal(t, "a, b", v)
	bad, _ := h.Get("x-bad")
	assert.Equal(t, "caf\uFFFD", bad)
	assert.Equal(t, "{\"host\":\"example.test\",\"x-tag\":\"a, b\",\"accept\":\"*/*\",\"x-bad\":\"caf\uFFFD\"}", marshal(t, h))
}

func TestDecodeQuery(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"", `{}`},
		{"a=1&a=2&b=3", `{"a":["1","2"],"b":"3"}`},
		{"q=hello+world&e=%E2%82%AC", `{"q":"hello world","e":"€"}`},
		{"bad=%zz&half=%4", `{"bad":"%zz","half":"%4"}`},
		{"flag&&x=", `{"flag":"","x":""}`},
		{"k=a=b", `{"k":"a=b"}`},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, marshal(t, DecodeQuery(tc.raw)))
		})
	}
}

func TestValuesEncodeRoundTrip(t *testing.T) {
	for _, raw := range []string{
		"a=1&a=2&b=3",
		"sp=a+b&pct=%25&amp=%26&eq=%3D",
		"flag&=empty&x=%zz",
		"uni=%E2%9C%93&uni=plain",
	} {
		first := DecodeQuery(raw)
		second := DecodeQuery(first.Encode())
		assert.Equal(t, marshal(t, first), marshal(t, second), raw)
	}
}

func TestParseJSONPreservesLiteral(t *testing.T) {
	for _, in := range []string{
		`{"a":1}`,
		`{"z":1.50,"a":[true,false,null],"m":{"k":"v"}}`,
		`[1e10,-0,12345678901234567890]`,
		`"text"`,
		`{}`,
		`[]`,
	} {
		v, err := ParseJSON([]byte(in))
		require.NoError(t, err, in)
		assert.Equal(t, in, marshal(t, v))
	}
}

func TestParseJSONTrailing(t *testing.T) {
	v, err := ParseJSON([]byte(" {\"a\":1} \r\n\t"))
	require.NoError(t, err)
	assert.Equal(t, KindObject, v.Kind())

	for _, in := range []string{``, `{"a":1} x`, `{"a":1}{}`, `{"a":`, `not json`} {
		_, err := ParseJSON([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestParseJSONDepth(t *testing.T) {
	deep := strings.Repeat("[", maxDepth+1) + strings.Repeat("]", maxDepth+1)
	_, err := ParseJSON([]byte(deep))
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		b, diags := Classify("", nil)
		assert.Equal(t, VariantEmpty, b.Variant)
		assert.Empty(t, diags)
	})

	t.Run("json", func(t *testing.T) {
		b, diags := Classify("Application/JSON; charset=utf-8", []byte(`{"a":1}`))
		require.Empty(t, diags)
		assert.Equal(t, VariantJSON, b.Variant)
		assert.Equal(t, `{"a":1}`, marshal(t, b.JSON))
	})

	t.Run("invalid json falls back to data", func(t *testing.T) {
		b, diags := Classify("application/json", []byte(`{oops`))
		require.Len(t, diags, 1)
		assert.True(t, errors.Is(diags[0], apperrors.ErrBodyDecode))
		assert.Equal(t, VariantData, b.Variant)
		assert.Equal(t, `{oops`, b.Data)
	})

	t.Run("urlencoded", func(t *testing.T) {
		b, diags := Classify("application/x-www-form-urlencoded", []byte("a=1&a=2&b=3"))
		assert.Empty(t, diags)
		assert.Equal(t, VariantForm, b.Variant)
		assert.Equal(t, `{"a":["1","2"],"b":"3"}`, marshal(t, b.Form))
	})

	t.Run("multipart without boundary", func(t *testing.T) {
		b, diags := Classify("multipart/form-data", []byte("x"))
		require.Len(t, diags, 1)
		assert.Equal(t, VariantData, b.Variant)
		assert.Equal(t, "x", b.Data)
	})

	t.Run("binary data", func(t *testing.T) {
		b, diags := Classify("image/png", []byte{0x89, 'P', 'N', 'G', 0xff})
		assert.Empty(t, diags)
		assert.Equal(t, "data:image/png;base64,iVBOR/8=", b.Data)
	})

	t.Run("no content type", func(t *testing.T) {
		b, _ := Classify("", []byte{0xff, 0xfe})
		assert.Equal(t, "data:application/octet-stream;base64,//4=", b.Data)
	})
}

const boundary = "XyZ"

func multipartBody(parts ...string) []byte {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString("--" + boundary + "\r\n")
		b.WriteString(p)
		b.WriteString("\r\n")
	}
	b.WriteString("--" + boundary + "--\r\n")
	return []byte(b.String())
}

func TestExtractMultipart(t *testing.T) {
	body := multipartBody(
		"Content-Disposition: form-data; name=\"title\"\r\n\r\nhello",
		"Content-Disposition: form-data; name=\"file\"; filename=\"report.txt\"\r\nContent-Type: text/plain\r\n\r\nhi",
	)
	form, files, diags, err := ExtractMultipart(body, boundary)
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Equal(t, `{"title":"hello"}`, marshal(t, form))
	assert.Equal(t,
		`{"file":{"name":"file","filename":"report.txt","content_type":"text/plain","size":2,"content":"hi"}}`,
		marshal(t, files))
}

func TestExtractMultipartBoundaryInContent(t *testing.T) {
	// boundary bytes not at a line start are content
	body := multipartBody(
		"Content-Disposition: form-data; name=\"a\"\r\n\r\nx--XyZ y\r\n--XyZnot a delimiter",
		"Content-Disposition: form-data; name=\"b\"\r\n\r\n",
	)
	form, _, diags, err := ExtractMultipart(body, boundary)
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Equal(t, "x--XyZ y\r\n--XyZnot a delimiter", form.Get("a"))
	assert.Equal(t, []string{""}, form.All("b"))
}

func TestExtractMultipartMalformedParts(t *testing.T) {
	body := multipartBody(
		"Content-Disposition: form-data; name=\"ok\"\r\n\r\n1",
		"Content-Type: text/plain\r\n\r\nno disposition",
		"Content-Disposition: form-data\r\n\r\nno name",
		"Content-Disposition: form-data; name=\"nosep\"",
		"Content-Disposition: form-data; name=\"ok\"\r\n\r\n2",
	)
	form, files, diags, err := ExtractMultipart(body, boundary)
	require.NoError(t, err)
	assert.Len(t, diags, 3)
	for _, d := range diags {
		assert.True(t, errors.Is(d, apperrors.ErrBodyDecode))
	}
	assert.Equal(t, `{"ok":["1","2"]}`, marshal(t, form))
	assert.Equal(t, 0, files.Len())
}

func TestExtractMultipartMissingClose(t *testing.T) {
	body := []byte("--XyZ\r\nContent-Disposition: form-data; name=\"a\"\r\n\r\nkept\r\n--XyZ\r\nContent-Disposition: form-data; name=\"b\"\r\n\r\ntail")
	form, _, diags, err := ExtractMultipart(body, boundary)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "kept", form.Get("a"))
	assert.Equal(t, "tail", form.Get("b"))
}

func TestExtractMultipartLF(t *testing.T) {
	body := []byte("preamble\n--XyZ\nContent-Disposition: form-data; name=\"a\"\n\nv\n--XyZ--")
	form, _, diags, err := ExtractMultipart(body, boundary)
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Equal(t, "v", form.Get("a"))
}

func TestExtractMultipartNoDelimiter(t *testing.T) {
	_, _, _, err := ExtractMultipart([]byte("just text"), boundary)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrBodyDecode))
}

func TestFileDescriptorBinaryAndRepeats(t *testing.T) {
	body := multipartBody(
		"Content-Disposition: form-data; name=\"up\"; filename=\"a.bin\"\r\n\r\n\xff\x00",
		"Content-Disposition: form-data; name=\"up\"; filename=\"\"\r\n\r\n",
	)
	_, files, _, err := ExtractMultipart(body, boundary)
	require.NoError(t, err)
	assert.Equal(t,
		`{"up":[{"name":"up","filename":"a.bin","content_type":"application/octet-stream","size":2,"content":"data:application/octet-stream;base64,/wA="},`+
			`{"name":"up","content_type":"application/octet-stream","size":0,"content":""}]}`,
		marshal(t, files))
}

func TestBuild(t *testing.T) {
	b := NewBuilder(Options{})
	doc, diags := b.Build(&httpx.Request{
		Method:     "POST",
		Path:       "/post",
		RawQuery:   "x=1",
		RemoteAddr: "10.0.0.7:53412",
		Fields: []httpx.Field{
			{Name: "Host", Value: "h"},
			{Name: "Content-Type", Value: "application/json"},
		},
		Body: []byte(`{"a":1}`),
	})
	require.Empty(t, diags)
	assert.Equal(t,
		`{"method":"POST","url":"/post","origin":"10.0.0.7","headers":{"host":"h","content-type":"application/json"},"args":{"x":"1"},"json":{"a":1}}`,
		marshal(t, doc))
}

func TestBuildNullJSON(t *testing.T) {
	doc, diags := NewBuilder(Options{}).Build(&httpx.Request{
		Method:     "POST",
		Path:       "/post",
		RemoteAddr: "10.0.0.7:1",
		Fields:     []httpx.Field{{Name: "Content-Type", Value: "application/json"}},
		Body:       []byte(" null "),
	})
	require.Empty(t, diags)
	assert.Equal(t, VariantJSON, doc.Variant)
	require.NotNil(t, doc.JSON)
	assert.Equal(t, KindNull, doc.JSON.Kind())
	assert.Equal(t,
		`{"method":"POST","url":"/post","origin":"10.0.0.7","headers":{"content-type":"application/json"},"args":{},"json":null}`,
		marshal(t, doc))
}

func TestMarshalKeepsMarkupCharacters(t *testing.T) {
	h := NormalizeHeaders([]httpx.Field{{Name: "X-Html", Value: "<b>&"}})
	assert.Equal(t, `{"x-html":"<b>&"}`, encodeUnescaped(t, h))

	assert.Equal(t, `{"q":"<i>&"}`, encodeUnescaped(t, DecodeQuery("q=%3Ci%3E%26")))

	v, err := ParseJSON([]byte(`{"<k>":["a&b","\u003c"]}`))
	require.NoError(t, err)
	assert.Equal(t, `{"<k>":["a&b","<"]}`, encodeUnescaped(t, v))

	fd := FileDescriptor{Name: "up", Filename: "<x>.html", ContentType: "text/html", Content: []byte("<p>&</p>")}
	assert.Equal(t,
		`{"name":"up","filename":"<x>.html","content_type":"text/html","size":8,"content":"<p>&</p>"}`,
		encodeUnescaped(t, fd))
}

func TestBuildMultipartDocument(t *testing.T) {
	body := multipartBody("Content-Disposition: form-data; name=\"only\"\r\n\r\ntext")
	doc, _ := NewBuilder(Options{}).Build(&httpx.Request{
		Method:     "POST",
		Path:       "/post",
		RemoteAddr: "[::1]:80",
		Fields:     []httpx.Field{{Name: "Content-Type", Value: "multipart/form-data; boundary=" + boundary}},
		Body:       body,
	})
	out := marshal(t, doc)
	assert.Contains(t, out, `"origin":"::1"`)
	assert.Contains(t, out, `"form":{"only":"text"}`)
	assert.NotContains(t, out, `"files"`)
	assert.NotContains(t, out, `"data"`)
	assert.NotContains(t, out, `null`)
}

func TestBuildEmptyBody(t *testing.T) {
	doc, _ := NewBuilder(Options{}).Build(&httpx.Request{Method: "GET", Path: "/get", RemoteAddr: "1.2.3.4:5"})
	assert.Equal(t, `{"method":"GET","url":"/get","origin":"1.2.3.4","headers":{},"args":{}}`, marshal(t, doc))
}

func TestOriginProxyHeaders(t *testing.T) {
	fields := []httpx.Field{
		{Name: "X-Forwarded-For", Value: " 203.0.113.9, 10.0.0.1"},
		{Name: "X-Real-IP", Value: "198.51.100.2"},
	}
	req := &httpx.Request{Method: "GET", Path: "/get", RemoteAddr: "10.0.0.1:4000", Fields: fields}

	doc, _ := NewBuilder(Options{}).Build(req)
	assert.Equal(t, "10.0.0.1", doc.Origin)

	doc, _ = NewBuilder(Options{TrustProxyHeaders: true}).Build(req)
	assert.Equal(t, "203.0.113.9", doc.Origin)

	req.Fields = fields[1:]
	doc, _ = NewBuilder(Options{TrustProxyHeaders: true}).Build(req)
	assert.Equal(t, "198.51.100.2", doc.Origin)
}
