package services

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// TemplateService produces the spreadsheet operators fill in before an upload
type TemplateService interface {
	BuildTemplate() ([]byte, error)
}

type templateService struct{}

func NewTemplateService() TemplateService {
	return &templateService{}
}

// templateRows holds one example per part. Cells a part does not use stay
// empty, so the file shows which columns are optional for which part.
var templateRows = []sheetRow{
	{
		ColPart:          "1",
		ColCorrectChoice: "A",
		ColExplanationVI: "Người đàn ông đang gõ bàn phím.",
		ColExplanationEN: "The man is typing on a keyboard.",
		ColTags:          "listening,photographs",
		ColDifficulty:    "easy",
		ColStatus:        "draft",
		ColAudioURL:      "https://cdn.example.com/audio/part1-001.mp3",
		ColTranscript:    "(A) He's typing on a keyboard. (B) He's opening a window. (C) He's answering the phone. (D) He's moving a chair.",
		ColImageURL:      "https://cdn.example.com/images/part1-001.jpg",
	},
	{
		ColPart:          "2",
		ColCorrectChoice: "B",
		ColExplanationVI: "Câu hỏi về thời gian, đáp án nêu thời điểm.",
		ColExplanationEN: "A when-question answered with a time.",
		ColTags:          "listening,question-response",
		ColDifficulty:    "easy",
		ColStatus:        "draft",
		ColAudioURL:      "https://cdn.example.com/audio/part2-001.mp3",
		ColTranscript:    "When does the meeting start? (A) In room 3. (B) At ten o'clock. (C) Yes, I did.",
	},
	{
		ColPart:           "3",
		ColQuestionText:   "Where most likely are the speakers?",
		ColChoiceA:        "At a bank",
		ColChoiceB:        "At a hotel",
		ColChoiceC:        "At a restaurant",
		ColChoiceD:        "At an airport",
		ColCorrectChoice:  "B",
		ColExplanationVI:  "Người nói nhắc tới việc đặt phòng.",
		ColExplanationEN:  "The speakers talk about a room reservation.",
		ColTags:           "listening,conversations",
		ColDifficulty:     "medium",
		ColStatus:         "draft",
		ColPassageID:      "PASSAGE_ID_PART3",
		ColPassageTitle:   "Hotel check-in",
		ColPassageContent: "W: Good evening, I have a reservation under Tanaka. M: Welcome, let me find your room.",
	},
	{
		ColPart:           "4",
		ColQuestionText:   "What is the purpose of the announcement?",
		ColChoiceA:        "To announce a delay",
		ColChoiceB:        "To introduce a speaker",
		ColChoiceC:        "To describe a product",
		ColChoiceD:        "To request volunteers",
		ColCorrectChoice:  "A",
		ColExplanationVI:  "Thông báo nói chuyến bay bị hoãn.",
		ColExplanationEN:  "The announcement says the flight is delayed.",
		ColTags:           "listening,talks",
		ColDifficulty:     "medium",
		ColStatus:         "draft",
		ColPassageID:      "PASSAGE_ID_PART4",
		ColPassageTitle:   "Airport announcement",
		ColPassageContent: "Attention passengers on flight 208 to Osaka. Departure has been delayed by one hour.",
	},
	{
		ColPart:          "5",
		ColQuestionText:  "The report must be submitted ___ Friday.",
		ColChoiceA:       "by",
		ColChoiceB:       "until",
		ColChoiceC:       "at",
		ColChoiceD:       "on",
		ColCorrectChoice: "A",
		ColExplanationVI: "\"by\" chỉ hạn chót.",
		ColExplanationEN: "\"by\" marks a deadline.",
		ColTags:          "reading,grammar,prepositions",
		ColDifficulty:    "easy",
		ColStatus:        "published",
	},
	{
		ColPart:           "6",
		ColQuestionText:   "Choose the word that best completes blank 1.",
		ColChoiceA:        "announce",
		ColChoiceB:        "announced",
		ColChoiceC:        "announcing",
		ColChoiceD:        "announcement",
		ColCorrectChoice:  "B",
		ColExplanationVI:  "Cần động từ ở thì quá khứ.",
		ColExplanationEN:  "A past tense verb is required.",
		ColTags:           "reading,text-completion",
		ColDifficulty:     "medium",
		ColStatus:         "draft",
		ColPassageID:      "PASSAGE_ID_PART6",
		ColPassageTitle:   "Company memo",
		ColPassageContent: "Last week the board ___(1)___ a new travel policy.",
		ColBlankIndex:     "1",
	},
	{
		ColPart:           "7",
		ColQuestionText:   "What is the main topic of the e-mail?",
		ColChoiceA:        "A job offer",
		ColChoiceB:        "A product recall",
		ColChoiceC:        "A schedule change",
		ColChoiceD:        "A billing error",
		ColCorrectChoice:  "C",
		ColExplanationVI:  "Câu đầu tiên nói về thay đổi lịch.",
		ColExplanationEN:  "The first sentence mentions the new schedule.",
		ColTags:           "reading,single-passage",
		ColDifficulty:     "hard",
		ColStatus:         "draft",
		ColPassageID:      "PASSAGE_ID_PART7",
		ColPassageTitle:   "Schedule update",
		ColPassageContent: "Dear team, please note that Thursday's training has moved to Monday at 9 a.m.",
	},
}

func (s *templateService) BuildTemplate() ([]byte, error) {
	return writeQuestionWorkbook(templateRows)
}

// writeQuestionWorkbook writes rows under the canonical header into a
// single "Questions" sheet
func writeQuestionWorkbook(rows []sheetRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, questionSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	header := make([]interface{}, len(QuestionColumns))
	for i, col := range QuestionColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(questionSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(questionSheet, 1, 1, boldStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := row.values()
		if err := f.SetSheetRow(questionSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(QuestionColumns))
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(questionSheet, "A", lastCol, 20); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}
