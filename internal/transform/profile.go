package transform

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	rerrors "github.com/dharsanguruparan/PrintReady/internal/errors"
)

// iccHeaderSize is the fixed ICC profile header length; the "acsp"
// signature sits at offset 36.
const iccHeaderSize = 128

// ProfileFile is a color profile staged on local disk for one render.
// Close removes it and must run on every exit path.
type ProfileFile struct {
	Path string
	Name string
}

// StageProfile writes profile bytes to a private temporary file.
func StageProfile(dir string, data []byte, name string) (*ProfileFile, error) {
	f, err := os.CreateTemp(dir, "printready-*.icc")
	if err != nil {
		return nil, fmt.Errorf("create icc temp file: %w", err)
	}
	pf := &ProfileFile{Path: f.Name(), Name: name}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(pf.Path)
		return nil, fmt.Errorf("write icc temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(pf.Path)
		return nil, fmt.Errorf("close icc temp file: %w", err)
	}
	return pf, nil
}

// Load reads the staged profile and checks its header signature.
func (p *ProfileFile) Load() ([]byte, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("read icc profile: %w", err)
	}
	if err := ValidateICC(data); err != nil {
		return nil, rerrors.WrapWithCode(err, rerrors.CodeConfiguration, "transform.icc", "unusable icc profile "+p.Name)
	}
	return data, nil
}

// Close removes the staged file. Removing an already-removed file is not an error.
func (p *ProfileFile) Close() error {
	if p == nil {
		return nil
	}
	if err := os.Remove(p.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ValidateICC checks the declared size and signature of an ICC profile.
func ValidateICC(data []byte) error {
	if len(data) < iccHeaderSize {
		return fmt.Errorf("icc profile is %d bytes, shorter than its header", len(data))
	}
	if !bytes.Equal(data[36:40], []byte("acsp")) {
		return fmt.Errorf("icc profile lacks the acsp signature")
	}
	declared := binary.BigEndian.Uint32(data[0:4])
	if int(declared) > len(data) {
		return fmt.Errorf("icc profile declares %d bytes, has %d", declared, len(data))
	}
	return nil
}
