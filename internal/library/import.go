package library

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// Importer loads library titles from a CSV export into the mirror.
type Importer struct {
	db *DB
}

// NewImporter creates a library importer.
func NewImporter(db *DB) *Importer {
	return &Importer{db: db}
}

// ImportCSV imports library items from a CSV file with at least the
// columns imdb_id and title; an optional users column carries a
// semicolon-separated user list registered as library users.
func (i *Importer) ImportCSV(ctx context.Context, csvPath string) error {
	log.Info().Str("csv", csvPath).Msg("Starting library import")

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open library CSV: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	idIdx := findColumnIndex(header, "imdb_id")
	titleIdx := findColumnIndex(header, "title")
	usersIdx := findColumnIndex(header, "users")
	if idIdx < 0 || titleIdx < 0 {
		return fmt.Errorf("required columns 'imdb_id' and 'title' not found in CSV header")
	}

	lineCount := 1
	successCount := 0
	var importErrs []string

	for {
		lineCount++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn().Err(err).Int("line", lineCount).Msg("Error reading CSV line")
			importErrs = append(importErrs, fmt.Sprintf("line %d: %v", lineCount, err))
			continue
		}

		imdbID := safeGetValue(record, idIdx)
		title := safeGetValue(record, titleIdx)
		if imdbID == "" {
			log.Warn().Int("line", lineCount).Msg("Skipping row with empty imdb id")
			importErrs = append(importErrs, fmt.Sprintf("line %d: empty imdb id", lineCount))
			continue
		}

		if err := i.db.InsertItem(ctx, imdbID, title); err != nil {
			log.Error().Err(err).Int("line", lineCount).Str("imdb_id", imdbID).Msg("Failed to insert library item")
			importErrs = append(importErrs, fmt.Sprintf("line %d: %v", lineCount, err))
			continue
		}

		if users := safeGetValue(record, usersIdx); users != "" {
			for _, user := range strings.Split(users, ";") {
				user = strings.TrimSpace(user)
				if user == "" {
					continue
				}
				if err := i.db.AddUser(ctx, user); err != nil {
					log.Warn().Err(err).Str("user", user).Msg("Failed to register user")
				}
			}
		}

		successCount++
	}

	log.Info().
		Int("total", lineCount-1).
		Int("success", successCount).
		Int("errors", len(importErrs)).
		Msg("Library import summary")

	if len(importErrs) > 0 {
		log.Warn().Strs("errors", importErrs).Msg("Library import finished with errors")
	}
	return nil
}

func findColumnIndex(header []string, columnName string) int {
	for i, col := range header {
		if strings.EqualFold(col, columnName) {
			return i
		}
	}
	return -1
}

func safeGetValue(record []string, index int) string {
	if index >= 0 && index < len(record) {
		return strings.TrimSpace(record[index])
	}
	return ""
}
