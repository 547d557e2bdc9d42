// Package protocol talks to the localization engine over its stdin, stdout and
// stderr pipes using a newline-terminated, space-separated text protocol.
package protocol

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Outbound keywords.
const (
	CmdGet    = "get"
	CmdPose   = "pose"
	CmdFront  = "front"
	CmdLeft   = "left"
	CmdRight  = "right"
	CmdChange = "change"
	CmdExit   = "exit"
)

// Inbound markers.
const (
	markerParticle = "particle"
	markerPose     = "pose"
)

// ErrMalformedLine marks an inbound line whose marker was recognised but whose
// fields were not.
var ErrMalformedLine = errors.New("malformed engine line")

// Kind tags an inbound message.
type Kind int

const (
	// KindOther is free-form engine output.
	KindOther Kind = iota
	KindParticle
	KindPose
)

func (k Kind) String() string {
	switch k {
	case KindParticle:
		return "particle"
	case KindPose:
		return "pose"
	default:
		return "other"
	}
}

// Message is a parsed inbound line. Which fields are meaningful depends on Kind:
// particle uses Index, X, Y, Weight; pose uses X, Y, Heading; other uses Text.
type Message struct {
	Kind    Kind
	Index   int
	X, Y    float64
	Weight  float64
	Heading float64
	Text    string
}

// ParseLine parses one inbound line. The marker is the first whitespace
// separated token; lines with any other first token are KindOther and never
// fail. Errors wrap ErrMalformedLine.
func ParseLine(line string) (Message, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Message{Kind: KindOther, Text: ""}, nil
	}
	switch fields[0] {
	case markerParticle:
		return parseParticle(fields)
	case markerPose:
		return parsePose(fields)
	default:
		return Message{Kind: KindOther, Text: strings.TrimSpace(line)}, nil
	}
}

// particle <index> <x> <y> <weight>
func parseParticle(fields []string) (Message, error) {
	if len(fields) != 5 {
		return Message{}, errors.Wrapf(ErrMalformedLine, "particle: want 4 fields, got %d", len(fields)-1)
	}
	idx, err := strconv.Atoi(fields[1])
	if err != nil {
		return Message{}, errors.Wrapf(ErrMalformedLine, "particle index %q", fields[1])
	}
	x, err := parseFinite("x", fields[2])
	if err != nil {
		return Message{}, err
	}
	y, err := parseFinite("y", fields[3])
	if err != nil {
		return Message{}, err
	}
	// Weight may legitimately be NaN while the engine renormalises.
	w, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return Message{}, errors.Wrapf(ErrMalformedLine, "particle weight %q", fields[4])
	}
	return Message{Kind: KindParticle, Index: idx, X: x, Y: y, Weight: w}, nil
}

// pose <x> <y> <heading>
func parsePose(fields []string) (Message, error) {
	if len(fields) != 4 {
		return Message{}, errors.Wrapf(ErrMalformedLine, "pose: want 3 fields, got %d", len(fields)-1)
	}
	x, err := parseFinite("x", fields[1])
	if err != nil {
		return Message{}, err
	}
	y, err := parseFinite("y", fields[2])
	if err != nil {
		return Message{}, err
	}
	h, err := parseFinite("heading", fields[3])
	if err != nil {
		return Message{}, err
	}
	return Message{Kind: KindPose, X: x, Y: y, Heading: h}, nil
}

func parseFinite(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Wrapf(ErrMalformedLine, "%s %q", name, s)
	}
	return v, nil
}

// FormatFrame renders one outbound line: the keyword, then each value in the
// shortest form that round-trips, separated by single spaces, then '\n'.
func FormatFrame(kind string, values ...float64) string {
	var b strings.Builder
	b.WriteString(kind)
	for _, v := range values {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	b.WriteByte('\n')
	return b.String()
}
