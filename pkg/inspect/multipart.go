package inspect

import (
	"bytes"
	"encoding/base64"
	"mime"
	"strings"
	"unicode/utf8"

	apperrors "echobin/pkg/errors"
)

const defaultFileType = "application/octet-stream"

// FileDescriptor describes one uploaded file part.
type FileDescriptor struct {
	Name        string
	Filename    string
	ContentType string
	Content     []byte
}

func (f FileDescriptor) Size() int { return len(f.Content) }

// MarshalJSON emits content as text when it is valid UTF-8 and as a base64
// data URL otherwise.
func (f FileDescriptor) MarshalJSON() ([]byte, error) {
	ct := f.ContentType
	if ct == "" {
		ct = defaultFileType
	}
	return marshalRaw(struct {
		Name        string `json:"name"`
		Filename    string `json:"filename,omitempty"`
		ContentType string `json:"content_type"`
		Size        int    `json:"size"`
		Content     string `json:"content"`
	}{
		Name:        f.Name,
		Filename:    f.Filename,
		ContentType: ct,
		Size:        len(f.Content),
		Content:     opaque(ct, f.Content),
	})
}

// Files is an ordered multi-mapping from field name to file parts.
type Files struct {
	names []string
	files map[string][]FileDescriptor
}

func (fs *Files) Add(fd FileDescriptor) {
	if fs.files == nil {
		fs.files = make(map[string][]FileDescriptor)
	}
	if _, ok := fs.files[fd.Name]; !ok {
		fs.names = append(fs.names, fd.Name)
	}
	fs.files[fd.Name] = append(fs.files[fd.Name], fd)
}

// All returns the files uploaded under name.
func (fs Files) All(name string) []FileDescriptor { return fs.files[name] }

func (fs Files) Names() []string { return fs.names }

func (fs Files) Len() int { return len(fs.names) }

// MarshalJSON emits a name seen once as a descriptor and a repeated name as
// an array of descriptors.
func (fs Files) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range fs.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeString(&buf, name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		var (
			b   []byte
			err error
		)
		if list := fs.files[name]; len(list) == 1 {
			b, err = marshalRaw(list[0])
		} else {
			b, err = marshalRaw(list)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type scanState uint8

const (
	seekingBoundary scanState = iota
	readingHeaders
	readingBody
	done
)

// delimiter is one boundary line found in the body.
type delimiter struct {
	start int  // index of the leading "--"
	end   int  // index just past the delimiter line
	close bool // "--boundary--"
}

type partScanner struct {
	body  []byte
	dash  []byte
	state scanState
	pos   int

	next      delimiter // delimiter closing the current part
	hasNext   bool
	bodyStart int
	header    partHeader

	form  Values
	files Files
	diags []error
}

type partHeader struct {
	name        string
	filename    string
	isFile      bool
	contentType string
}

// ExtractMultipart splits a multipart/form-data body into text fields and
// file parts. Malformed parts are skipped and reported in diags; err is set
// only when the body holds no opening delimiter at all.
func ExtractMultipart(body []byte, boundary string) (form Values, files Files, diags []error, err error) {
	s := &partScanner{
		body: body,
		dash: []byte("--" + boundary),
	}
	for s.state != done {
		switch s.state {
		case seekingBoundary:
			if err := s.seek(); err != nil {
				return Values{}, Files{}, nil, err
			}
		case readingHeaders:
			s.readHeaders()
		case readingBody:
			s.readBody()
		}
	}
	return s.form, s.files, s.diags, nil
}

func (s *partScanner) seek() error {
	d, ok := s.findDelimiter(0)
	if !ok {
		return apperrors.Decode("multipart", "no opening boundary delimiter")
	}
	if d.close {
		s.state = done
		return nil
	}
	s.pos = d.end
	s.state = readingHeaders
	return nil
}

// readHeaders locates the delimiter ending the current part and parses the
// header block in front of it.
func (s *partScanner) readHeaders() {
	s.next, s.hasNext = s.findDelimiter(s.pos)
	limit := len(s.body)
	if s.hasNext {
		limit = s.next.start
	}
	region := s.body[s.pos:limit]

	hdrEnd, sepLen := headerBlockEnd(region)
	if hdrEnd < 0 {
		s.skip("part without header terminator")
		return
	}
	h, err := parsePartHeader(region[:hdrEnd])
	if err != nil {
		s.diags = append(s.diags, err)
		s.advance()
		return
	}
	s.header = h
	s.bodyStart = s.pos + hdrEnd + sepLen
	s.state = readingBody
}

func (s *partScanner) readBody() {
	end := len(s.body)
	if s.hasNext {
		end = lineStart(s.body, s.next.start)
	}
	if end < s.bodyStart {
		end = s.bodyStart
	}
	content := s.body[s.bodyStart:end]

	if s.header.isFile {
		s.files.Add(FileDescriptor{
			Name:        s.header.name,
			Filename:    s.header.filename,
			ContentType: s.header.contentType,
			Content:     content,
		})
	} else {
		s.form.Add(s.header.name, lossy(string(content)))
	}
	s.advance()
}

func (s *partScanner) skip(reason string) {
	s.diags = append(s.diags, apperrors.Decode("multipart.part", "%s", reason))
	s.advance()
}

// advance moves past the delimiter ending the current part.
func (s *partScanner) advance() {
	s.header = partHeader{}
	switch {
	case !s.hasNext:
		s.diags = append(s.diags, apperrors.Decode("multipart", "missing closing boundary delimiter"))
		s.state = done
	case s.next.close:
		s.state = done
	default:
		s.pos = s.next.end
		s.state = readingHeaders
	}
}

// findDelimiter returns the first valid delimiter at or after from. The dash
// boundary only counts at the start of the body or right after a line break,
// and must be followed by "--" or by optional whitespace and a line break.
func (s *partScanner) findDelimiter(from int) (delimiter, bool) {
	for from <= len(s.body) {
		i := bytes.Index(s.body[from:], s.dash)
		if i < 0 {
			return delimiter{}, false
		}
		start := from + i
		from = start + 1
		if start > 0 && s.body[start-1] != '\n' {
			continue
		}
		rest := s.body[start+len(s.dash):]
		if bytes.HasPrefix(rest, []byte("--")) {
			return delimiter{start: start, end: len(s.body) - len(rest) + 2, close: true}, true
		}
		j := 0
		for j < len(rest) && (rest[j] == ' ' || rest[j] == '\t') {
			j++
		}
		switch {
		case bytes.HasPrefix(rest[j:], []byte("\r\n")):
			j += 2
		case bytes.HasPrefix(rest[j:], []byte("\n")):
			j++
		default:
			continue
		}
		return delimiter{start: start, end: len(s.body) - len(rest) + j}, true
	}
	return delimiter{}, false
}

// lineStart backs up over the line break in front of the delimiter at i,
// which belongs to the delimiter rather than to the part content.
func lineStart(body []byte, i int) int {
	if i > 0 && body[i-1] == '\n' {
		i--
		if i > 0 && body[i-1] == '\r' {
			i--
		}
	}
	return i
}

// headerBlockEnd returns the length of the header block in region and the
// length of the blank-line separator following it, or -1.
func headerBlockEnd(region []byte) (int, int) {
	switch {
	case bytes.HasPrefix(region, []byte("\r\n")):
		return 0, 2
	case bytes.HasPrefix(region, []byte("\n")):
		return 0, 1
	}
	crlf := bytes.Index(region, []byte("\r\n\r\n"))
	lf := bytes.Index(region, []byte("\n\n"))
	switch {
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return crlf + 2, 2
	case lf >= 0:
		return lf + 1, 1
	}
	return -1, 0
}

func parsePartHeader(block []byte) (partHeader, error) {
	var (
		h           partHeader
		disposition string
	)
	for _, line := range strings.Split(string(block), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return h, apperrors.Decode("multipart.part", "malformed header line %q", line)
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "content-disposition":
			disposition = value
		case "content-type":
			h.contentType = value
		}
	}
	if disposition == "" {
		return h, apperrors.Decode("multipart.part", "part without Content-Disposition")
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return h, apperrors.Decode("multipart.part", "content-disposition: %v", err)
	}
	h.name = params["name"]
	if h.name == "" {
		return h, apperrors.Decode("multipart.part", "part without name")
	}
	h.filename, h.isFile = params["filename"]
	return h, nil
}

func opaque(mediaType string, body []byte) string {
	if utf8.Valid(body) {
		return string(body)
	}
	if mediaType == "" {
		mediaType = defaultFileType
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(body)
}
