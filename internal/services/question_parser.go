package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/SAP-F-2025/toeic-import-service/internal/models"
	"github.com/xuri/excelize/v2"
)

// FileType is the upload format
type FileType string

const (
	FileTypeXLSX FileType = "xlsx"
	FileTypeCSV  FileType = "csv"
)

// DetectFileType maps a file name to an upload format
func DetectFileType(filename string) (FileType, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FileTypeXLSX, nil
	case ".csv":
		return FileTypeCSV, nil
	default:
		return "", ErrUnsupportedFileType
	}
}

// QuestionParser turns uploaded spreadsheets into pending import records
type QuestionParser interface {
	Parse(r io.Reader, fileType FileType) ([]models.ImportedQuestionRecord, error)
	ParseWorkbook(r io.Reader) ([]models.ImportedQuestionRecord, error)
	ParseCSV(r io.Reader) ([]models.ImportedQuestionRecord, error)
}

type questionParser struct{}

func NewQuestionParser() QuestionParser {
	return &questionParser{}
}

func (p *questionParser) Parse(r io.Reader, fileType FileType) ([]models.ImportedQuestionRecord, error) {
	switch fileType {
	case FileTypeXLSX:
		return p.ParseWorkbook(r)
	case FileTypeCSV:
		return p.ParseCSV(r)
	default:
		return nil, ErrUnsupportedFileType
	}
}

// ParseWorkbook reads the first sheet of an .xlsx file
func (p *questionParser) ParseWorkbook(r io.Reader) ([]models.ImportedQuestionRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("failed to open Excel file: %w", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Err: fmt.Errorf("workbook has no sheets")}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("failed to read Excel rows: %w", err)}
	}

	return buildRecords(rows), nil
}

// ParseCSV reads a comma separated file with the same header layout
func (p *questionParser) ParseCSV(r io.Reader) ([]models.ImportedQuestionRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("failed to read file: %w", err)}
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	csvReader := csv.NewReader(bytes.NewReader(data))
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("failed to read CSV: %w", err)}
	}

	return buildRecords(rows), nil
}

// buildRecords maps data rows through the header row. Row numbers are the
// 1-based spreadsheet rows, header included.
func buildRecords(rows [][]string) []models.ImportedQuestionRecord {
	records := make([]models.ImportedQuestionRecord, 0)
	if len(rows) == 0 {
		return records
	}

	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		name = strings.TrimSpace(name)
		if _, dup := header[name]; !dup && name != "" {
			header[name] = i
		}
	}

	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		records = append(records, parseRow(header, row, i+2))
	}
	return records
}

func parseRow(header map[string]int, row []string, rowNumber int) models.ImportedQuestionRecord {
	get := func(name string) string {
		if idx, ok := header[name]; ok && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}
	getWithAlias := func(name, alias string) string {
		if v := get(name); v != "" {
			return v
		}
		return get(alias)
	}

	part := models.PartPhotographs
	if n, ok := parseLenientInt(get(ColPart)); ok {
		part = models.Part(n)
	}

	record := models.ImportedQuestionRecord{
		RowNumber:        rowNumber,
		Part:             part,
		QuestionText:     getWithAlias(ColQuestionText, ColQuestionAlias),
		ChoiceA:          get(ColChoiceA),
		ChoiceB:          get(ColChoiceB),
		ChoiceC:          get(ColChoiceC),
		ChoiceD:          get(ColChoiceD),
		CorrectChoice:    strings.ToUpper(getWithAlias(ColCorrectChoice, ColAnswerAlias)),
		ExplanationVI:    get(ColExplanationVI),
		ExplanationEN:    get(ColExplanationEN),
		Tags:             splitTags(get(ColTags)),
		Difficulty:       models.DifficultyLevel(strings.ToLower(get(ColDifficulty))),
		Status:           models.QuestionStatus(strings.ToLower(get(ColStatus))),
		PassageID:        get(ColPassageID),
		AudioURL:         get(ColAudioURL),
		ImageURL:         get(ColImageURL),
		Transcript:       get(ColTranscript),
		ValidationStatus: models.RecordPending,
		Errors:           []string{},
	}

	if record.Difficulty == "" {
		record.Difficulty = models.DifficultyMedium
	}
	if record.Status == "" {
		record.Status = models.QuestionDraft
	}
	if n, ok := parseLenientInt(get(ColBlankIndex)); ok {
		record.BlankIndex = &n
	}

	return record
}

// parseLenientInt reads the leading integer of s, so "3", " 3 " and "3.0"
// all give 3
func parseLenientInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	sign := 1
	switch s[0] {
	case '-':
		sign = -1
		s = s[1:]
	case '+':
		s = s[1:]
	}

	n, digits := 0, 0
	for _, r := range s {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			break
		}
		n = n*10 + int(r-'0')
		digits++
		if digits > 9 {
			return 0, false
		}
	}
	if digits == 0 {
		return 0, false
	}
	return sign * n, true
}

func splitTags(s string) []string {
	tags := make([]string, 0)
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
