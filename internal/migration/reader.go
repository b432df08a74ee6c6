package migration

import (
	"io"
	"unicode/utf8"
)

// Streaming wrappers applied to CSV uploads so the file never has to be
// buffered whole: a BOM skipper for files exported by Windows tools and a
// UTF-8 sanitizer replacing invalid bytes so encoding/csv does not choke on
// legacy exports.

type bomSkippingReader struct {
	reader     io.Reader
	bomChecked bool
	buf        [3]byte
	pending    []byte
}

func newBOMSkippingReader(r io.Reader) *bomSkippingReader {
	return &bomSkippingReader{reader: r}
}

func (r *bomSkippingReader) Read(p []byte) (int, error) {
	if !r.bomChecked {
		r.bomChecked = true

		n, err := io.ReadFull(r.reader, r.buf[:])
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if err != nil && err != io.EOF {
			return 0, err
		}

		head := r.buf[:n]
		if n == 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
			head = nil // skip the BOM
		}
		r.pending = head

		if len(r.pending) == 0 && err == io.EOF {
			return 0, io.EOF
		}
	}

	if len(r.pending) > 0 {
		copied := copy(p, r.pending)
		r.pending = r.pending[copied:]
		return copied, nil
	}

	return r.reader.Read(p)
}

// utf8SanitizingReader replaces bytes that do not form valid UTF-8 with '?'.
// A multi-byte sequence split across two reads is held back until the next
// read completes it.
type utf8SanitizingReader struct {
	reader  io.Reader
	pending []byte
	eof     bool
}

func newUTF8SanitizingReader(r io.Reader) *utf8SanitizingReader {
	return &utf8SanitizingReader{
		reader:  r,
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

func (s *utf8SanitizingReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := copy(p, s.pending)
	s.pending = s.pending[:0]

	var n int
	var err error
	if !s.eof {
		n, err = s.reader.Read(p[offset:])
		if err == io.EOF {
			s.eof = true
			err = nil
		}
	}
	n += offset

	if n == 0 {
		if s.eof {
			return 0, io.EOF
		}
		return 0, err
	}

	out := s.sanitize(p[:n])
	if len(out) == 0 && err == nil {
		// everything got held back as a partial sequence, read again
		return s.Read(p)
	}
	return len(out), err
}

func (s *utf8SanitizingReader) sanitize(data []byte) []byte {
	write := 0
	for read := 0; read < len(data); {
		r, size := utf8.DecodeRune(data[read:])

		if r == utf8.RuneError && size == 1 {
			rest := data[read:]
			if !s.eof && len(rest) < utf8.UTFMax && utf8.RuneStart(rest[0]) {
				// possibly an incomplete sequence at the buffer edge
				s.pending = append(s.pending, rest...)
				return data[:write]
			}
			data[write] = '?'
			write++
			read++
			continue
		}

		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return data[:write]
}

// wrapCSVStream applies the sanitizing readers in the required order: the
// BOM has to go before UTF-8 validation sees the stream.
func wrapCSVStream(r io.Reader) io.Reader {
	return newUTF8SanitizingReader(newBOMSkippingReader(r))
}
