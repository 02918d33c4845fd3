package color

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// OffProfileID identifies the built-in profile that blanks a strip.
const OffProfileID = "off"

// fingerprintSpace namespaces profile fingerprints.
var fingerprintSpace = uuid.MustParse("5f3c1a9e-7f6b-4c1d-9a51-2d2b8e6f0c11")

// ErrEmptyProfile is returned by Validate for user profiles without colors.
var ErrEmptyProfile = errors.New("color: profile has no colors")

// Profile is a reusable color list plus the mode used to expand it.
type Profile struct {
	ID     string  `json:"id" yaml:"id"`
	Name   string  `json:"name" yaml:"name"`
	Colors []RGB   `json:"colors" yaml:"colors"`
	Mode   Mode    `json:"mode" yaml:"mode"`
	Gamma  float64 `json:"gamma,omitempty" yaml:"gamma,omitempty"`
	// Seed reshuffles random mode. Zero derives it from the colors.
	Seed uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// Off returns the built-in blank profile.
func Off() *Profile {
	return &Profile{ID: OffProfileID, Name: OffProfileID, Mode: ModeRepeat, Gamma: DefaultGamma}
}

// IsOff reports whether p is the built-in blank profile.
func (p *Profile) IsOff() bool {
	return p.ID == OffProfileID
}

// Validate checks the profile invariants.
func (p *Profile) Validate() error {
	if p.Mode != "" && !p.Mode.Valid() {
		return fmt.Errorf("color: profile %q: unknown mode %q", p.Name, p.Mode)
	}
	if p.Gamma < 0 {
		return fmt.Errorf("color: profile %q: negative gamma", p.Name)
	}
	if len(p.Colors) == 0 && !p.IsOff() {
		return fmt.Errorf("%w: %q", ErrEmptyProfile, p.Name)
	}
	return nil
}

// Clone returns a deep copy so callers can hold it across catalog edits.
func (p *Profile) Clone() *Profile {
	c := *p
	c.Colors = append([]RGB(nil), p.Colors...)
	return &c
}

// gamma returns the effective gamma rounded to two decimals.
func (p *Profile) gamma() float64 {
	if p.Gamma == 0 {
		return DefaultGamma
	}
	return math.Round(p.Gamma*100) / 100
}

func (p *Profile) mode() Mode {
	if p.Mode == "" {
		return ModeRepeat
	}
	return p.Mode
}

// Expand produces exactly length gamma-corrected pixels.
func (p *Profile) Expand(length int) ([]RGB, error) {
	pixels, err := ExpandSeeded(p.Colors, p.mode(), length, p.seed())
	if err != nil {
		return nil, err
	}
	if g := p.gamma(); g != DefaultGamma {
		table := GammaTable(g)
		pixels = Correct(pixels, &table)
	}
	return pixels, nil
}

func (p *Profile) seed() uint64 {
	if p.Seed != 0 {
		return p.Seed
	}
	h := fnv.New64a()
	for _, c := range p.Colors {
		h.Write([]byte(c.Hex()))
	}
	return h.Sum64()
}

// Fingerprint identifies the rendered pattern. Two profiles with the same
// colors, mode and gamma share a fingerprint regardless of id or name.
func (p *Profile) Fingerprint() string {
	var sb strings.Builder
	sb.WriteString(string(p.mode()))
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatFloat(p.gamma(), 'f', 2, 64))
	if p.mode() == ModeRandom {
		sb.WriteByte('|')
		sb.WriteString(strconv.FormatUint(p.Seed, 10))
	}
	for _, c := range p.Colors {
		sb.WriteByte('|')
		sb.WriteString(c.Hex())
	}
	return uuid.NewSHA1(fingerprintSpace, []byte(sb.String())).String()
}
