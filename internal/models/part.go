package models

import "slices"

// Part is a TOEIC part number (1-7)
type Part int

const (
	PartPhotographs         Part = 1
	PartQuestionResponse    Part = 2
	PartConversations       Part = 3
	PartTalks               Part = 4
	PartIncompleteSentences Part = 5
	PartTextCompletion      Part = 6
	PartReading             Part = 7
)

const (
	MinPart = PartPhotographs
	MaxPart = PartReading
)

// AudioPolicy decides where a question's audio lives
type AudioPolicy string

const (
	AudioIndividual  AudioPolicy = "individual"
	AudioFromPassage AudioPolicy = "passage"
	AudioNone        AudioPolicy = "none"
)

// PartSpec declares the required-field set of a part. It drives the row
// validator, the batch importer and the template producer.
type PartSpec struct {
	Part               Part
	Name               string
	RequiresText       bool
	RequiresChoices    bool
	CorrectChoices     []string
	RequiresPassage    bool
	RequiresBlankIndex bool
	Audio              AudioPolicy
}

var allChoices = []string{"A", "B", "C", "D"}

var partSpecs = map[Part]PartSpec{
	PartPhotographs: {
		Part: PartPhotographs, Name: "Photographs",
		CorrectChoices: allChoices, Audio: AudioIndividual,
	},
	PartQuestionResponse: {
		Part: PartQuestionResponse, Name: "Question-Response",
		CorrectChoices: []string{"A", "B", "C"}, Audio: AudioIndividual,
	},
	PartConversations: {
		Part: PartConversations, Name: "Conversations",
		RequiresText: true, RequiresChoices: true, CorrectChoices: allChoices,
		RequiresPassage: true, Audio: AudioFromPassage,
	},
	PartTalks: {
		Part: PartTalks, Name: "Talks",
		RequiresText: true, RequiresChoices: true, CorrectChoices: allChoices,
		RequiresPassage: true, Audio: AudioFromPassage,
	},
	PartIncompleteSentences: {
		Part: PartIncompleteSentences, Name: "Incomplete Sentences",
		RequiresText: true, RequiresChoices: true, CorrectChoices: allChoices,
		Audio: AudioNone,
	},
	PartTextCompletion: {
		Part: PartTextCompletion, Name: "Text Completion",
		RequiresText: true, RequiresChoices: true, CorrectChoices: allChoices,
		RequiresPassage: true, RequiresBlankIndex: true, Audio: AudioNone,
	},
	PartReading: {
		Part: PartReading, Name: "Reading Comprehension",
		RequiresText: true, RequiresChoices: true, CorrectChoices: allChoices,
		RequiresPassage: true, Audio: AudioNone,
	},
}

// unknownPartSpec applies to out-of-range parts so the remaining rules
// still run against the row.
var unknownPartSpec = PartSpec{
	Name:            "Unknown",
	RequiresText:    true,
	RequiresChoices: true,
	CorrectChoices:  allChoices,
	Audio:           AudioNone,
}

func (p Part) IsValid() bool {
	return p >= MinPart && p <= MaxPart
}

// Spec returns the field rules of the part
func (p Part) Spec() PartSpec {
	if spec, ok := partSpecs[p]; ok {
		return spec
	}
	spec := unknownPartSpec
	spec.Part = p
	return spec
}

func (p Part) RequiresPassage() bool {
	return p.Spec().RequiresPassage
}

// AllowsChoice reports whether letter is an accepted correct choice for the part
func (s PartSpec) AllowsChoice(letter string) bool {
	return slices.Contains(s.CorrectChoices, letter)
}

// Parts lists all valid parts in order
func Parts() []Part {
	parts := make([]Part, 0, int(MaxPart))
	for p := MinPart; p <= MaxPart; p++ {
		parts = append(parts, p)
	}
	return parts
}
