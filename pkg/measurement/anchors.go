package measurement

import "fmt"

// Anchors maps the named points the engine reads to indices of a detector topology.
type Anchors struct {
	LeftPupil       int `json:"left_pupil"`
	RightPupil      int `json:"right_pupil"`
	LeftReference   int `json:"left_reference"`
	RightReference  int `json:"right_reference"`
	LeftEyeLowerLid int `json:"left_eye_lower_lid"`
	NoseTip         int `json:"nose_tip"`
	Forehead        int `json:"forehead"`
	Chin            int `json:"chin"`
}

// MediaPipeAnchors is the MediaPipe Face Mesh topology with iris refinement (478 points).
var MediaPipeAnchors = Anchors{
	LeftPupil:       473,
	RightPupil:      468,
	LeftReference:   127,
	RightReference:  356,
	LeftEyeLowerLid: 27,
	NoseTip:         1,
	Forehead:        10,
	Chin:            152,
}

type namedIndex struct {
	name  string
	index int
}

func (a Anchors) named() []namedIndex {
	return []namedIndex{
		{"left_pupil", a.LeftPupil},
		{"right_pupil", a.RightPupil},
		{"left_reference", a.LeftReference},
		{"right_reference", a.RightReference},
		{"left_eye_lower_lid", a.LeftEyeLowerLid},
		{"nose_tip", a.NoseTip},
		{"forehead", a.Forehead},
		{"chin", a.Chin},
	}
}

// MinLandmarks is the shortest sequence that resolves every anchor.
func (a Anchors) MinLandmarks() int {
	highest := 0
	for _, n := range a.named() {
		if n.index > highest {
			highest = n.index
		}
	}
	return highest + 1
}

func (a Anchors) Validate() error {
	for _, n := range a.named() {
		if n.index < 0 {
			return fmt.Errorf("anchor %s has negative index %d", n.name, n.index)
		}
	}
	return nil
}

// resolve checks that every anchor is addressable in a sequence of length n.
func (a Anchors) resolve(n int) error {
	if n == 0 {
		return &Error{Kind: ErrMalformedLandmarkSet, Field: "landmarks", Len: 0, Index: -1}
	}
	for _, named := range a.named() {
		if named.index < 0 || named.index >= n {
			return &Error{Kind: ErrMalformedLandmarkSet, Field: named.name, Index: named.index, Len: n}
		}
	}
	return nil
}
