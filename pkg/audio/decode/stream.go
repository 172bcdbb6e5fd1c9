// ABOUTME: Byte stream helper for fixed-width samples
// ABOUTME: Carries partial samples across reads so callers only see whole samples
package decode

import "io"

// sampleReader wraps a byte stream and only returns whole samples of width bytes
type sampleReader struct {
	r       io.Reader
	width   int
	pending []byte
	err     error
}

func newSampleReader(r io.Reader, width int) *sampleReader {
	return &sampleReader{r: r, width: width}
}

// Read fills p with a whole number of samples. len(p) must be at least width.
// A partial sample left at the end of the stream is discarded.
func (s *sampleReader) Read(p []byte) (int, error) {
	if s.err != nil {
		s.pending = nil
		return 0, s.err
	}

	n := copy(p, s.pending)
	s.pending = s.pending[:0]

	for {
		m, err := s.r.Read(p[n:])
		n += m
		whole := n - n%s.width

		if err != nil {
			if whole == 0 {
				return 0, err
			}
			s.pending = append(s.pending, p[whole:n]...)
			s.err = err
			return whole, nil
		}
		if whole > 0 {
			s.pending = append(s.pending, p[whole:n]...)
			return whole, nil
		}
	}
}
