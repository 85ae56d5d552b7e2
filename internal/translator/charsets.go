package translator

import (
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/davidelias/django-firebird/internal/errs"
)

// Charset pairs a Firebird character set with the codec used on the host side.
type Charset struct {
	// Name is the server-side name, e.g. WIN1252.
	Name string
	// ID is RDB$CHARACTER_SET_ID.
	ID int
	// Encoding converts between UTF-8 and the charset. Nil means bytes are
	// taken as they are (NONE, OCTETS).
	Encoding encoding.Encoding
}

// Encode converts s into the charset's bytes.
func (c Charset) Encode(s string) ([]byte, error) {
	if c.Encoding == nil {
		return []byte(s), nil
	}
	b, err := c.Encoding.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "text not representable in charset "+c.Name, err)
	}
	return b, nil
}

// Decode converts charset bytes into a string.
func (c Charset) Decode(b []byte) (string, error) {
	if c.Encoding == nil {
		return string(b), nil
	}
	out, err := c.Encoding.NewDecoder().Bytes(b)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindInvalidInput, "bytes not decodable from charset "+c.Name, err)
	}
	return string(out), nil
}

// Registry resolves Firebird charset names. Each connection gets the registry
// it was constructed with; there is no process-wide table.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Charset
	byID   map[int]Charset
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Charset),
		byID:   make(map[int]Charset),
	}
}

// DefaultRegistry returns a fresh registry holding the charsets Firebird ships with.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, c := range builtin() {
		r.Register(c)
	}
	return r
}

// Register adds or replaces a charset.
func (r *Registry) Register(c Charset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.Name = strings.ToUpper(c.Name)
	r.byName[c.Name] = c
	r.byID[c.ID] = c
}

// Lookup finds a charset by name, case-insensitively.
func (r *Registry) Lookup(name string) (Charset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Charset{}, errs.Newf(errs.ErrKindConfiguration, "unknown charset %q", name)
	}
	return c, nil
}

// LookupID finds a charset by RDB$CHARACTER_SET_ID.
func (r *Registry) LookupID(id int) (Charset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return Charset{}, errs.Newf(errs.ErrKindConfiguration, "unknown charset id %d", id)
	}
	return c, nil
}

func builtin() []Charset {
	return []Charset{
		{Name: "NONE", ID: 0},
		{Name: "OCTETS", ID: 1},
		{Name: "ASCII", ID: 2, Encoding: asciiEncoding{}},
		{Name: "UNICODE_FSS", ID: 3, Encoding: unicode.UTF8},
		{Name: "UTF8", ID: 4, Encoding: unicode.UTF8},
		{Name: "SJIS_0208", ID: 5, Encoding: japanese.ShiftJIS},
		{Name: "EUCJ_0208", ID: 6, Encoding: japanese.EUCJP},
		{Name: "DOS437", ID: 10, Encoding: charmap.CodePage437},
		{Name: "DOS850", ID: 11, Encoding: charmap.CodePage850},
		{Name: "DOS865", ID: 12, Encoding: charmap.CodePage865},
		{Name: "DOS860", ID: 13, Encoding: charmap.CodePage860},
		{Name: "DOS863", ID: 14, Encoding: charmap.CodePage863},
		{Name: "DOS858", ID: 16, Encoding: charmap.CodePage858},
		{Name: "DOS862", ID: 17, Encoding: charmap.CodePage862},
		{Name: "ISO8859_1", ID: 21, Encoding: charmap.ISO8859_1},
		{Name: "ISO8859_2", ID: 22, Encoding: charmap.ISO8859_2},
		{Name: "ISO8859_3", ID: 23, Encoding: charmap.ISO8859_3},
		{Name: "ISO8859_4", ID: 34, Encoding: charmap.ISO8859_4},
		{Name: "ISO8859_5", ID: 35, Encoding: charmap.ISO8859_5},
		{Name: "ISO8859_6", ID: 36, Encoding: charmap.ISO8859_6},
		{Name: "ISO8859_7", ID: 37, Encoding: charmap.ISO8859_7},
		{Name: "ISO8859_8", ID: 38, Encoding: charmap.ISO8859_8},
		{Name: "ISO8859_9", ID: 39, Encoding: charmap.ISO8859_9},
		{Name: "ISO8859_13", ID: 40, Encoding: charmap.ISO8859_13},
		{Name: "KSC_5601", ID: 44, Encoding: korean.EUCKR},
		{Name: "DOS852", ID: 45, Encoding: charmap.CodePage852},
		{Name: "DOS866", ID: 48, Encoding: charmap.CodePage866},
		{Name: "WIN1250", ID: 51, Encoding: charmap.Windows1250},
		{Name: "WIN1251", ID: 52, Encoding: charmap.Windows1251},
		{Name: "WIN1252", ID: 53, Encoding: charmap.Windows1252},
		{Name: "WIN1253", ID: 54, Encoding: charmap.Windows1253},
		{Name: "WIN1254", ID: 55, Encoding: charmap.Windows1254},
		{Name: "BIG_5", ID: 56, Encoding: traditionalchinese.Big5},
		{Name: "GB_2312", ID: 57, Encoding: simplifiedchinese.GBK},
		{Name: "WIN1255", ID: 58, Encoding: charmap.Windows1255},
		{Name: "WIN1256", ID: 59, Encoding: charmap.Windows1256},
		{Name: "WIN1257", ID: 60, Encoding: charmap.Windows1257},
		{Name: "KOI8R", ID: 63, Encoding: charmap.KOI8R},
		{Name: "KOI8U", ID: 64, Encoding: charmap.KOI8U},
		{Name: "WIN1258", ID: 65, Encoding: charmap.Windows1258},
		{Name: "TIS620", ID: 66, Encoding: charmap.Windows874},
		{Name: "GBK", ID: 67, Encoding: simplifiedchinese.GBK},
		{Name: "GB18030", ID: 69, Encoding: simplifiedchinese.GB18030},
	}
}

var errNotASCII = errors.New("byte outside the 7-bit ASCII range")

// asciiEncoding passes 7-bit bytes through and rejects everything else in
// both directions.
type asciiEncoding struct{}

func (asciiEncoding) NewDecoder() *encoding.Decoder {
	return &encoding.Decoder{Transformer: asciiOnly{}}
}

func (asciiEncoding) NewEncoder() *encoding.Encoder {
	return &encoding.Encoder{Transformer: asciiOnly{}}
}

type asciiOnly struct{ transform.NopResetter }

func (asciiOnly) Transform(dst, src []byte, _ bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		if src[nSrc] >= utf8.RuneSelf {
			return nDst, nSrc, errNotASCII
		}
		if nDst >= len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		dst[nDst] = src[nSrc]
		nDst++
		nSrc++
	}
	return nDst, nSrc, nil
}
