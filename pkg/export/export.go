// Package export writes captured user lists to CSV and JSON files with
// timestamped names. Scored exports add the relevance score and matched
// keywords alongside the profile fields.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"xtractr/pkg/logger"
	"xtractr/pkg/models"
)

// csvHeaders maps field keys onto their CSV column titles.
var csvHeaders = map[string]string{
	"username":        "Username",
	"displayName":     "Display Name",
	"bio":             "Bio",
	"followersCount":  "Followers",
	"followingCount":  "Following",
	"verified":        "Verified",
	"joinDate":        "Joined",
	"location":        "Location",
	"profileUrl":      "Profile URL",
	"userId":          "User ID",
	"profileImageUrl": "Profile Image URL",
}

// allFields lists every exportable field in column order.
var allFields = []string{
	"username", "displayName", "bio", "followersCount", "followingCount",
	"verified", "joinDate", "location", "profileUrl", "userId", "profileImageUrl",
}

// DefaultFields returns the default export field selection.
func DefaultFields() []string {
	return []string{
		"username", "displayName", "bio", "followersCount",
		"followingCount", "verified", "joinDate", "location", "profileUrl",
	}
}

// AllFields returns every exportable field key.
func AllFields() []string {
	out := make([]string, len(allFields))
	copy(out, allFields)
	return out
}

// GenerateCSV renders users as CSV. A nil fields selection exports
// every field.
func GenerateCSV(users []models.UserRecord, fields []string) (string, error) {
	if fields == nil {
		fields = allFields
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, len(fields))
	for i, key := range fields {
		if title, ok := csvHeaders[key]; ok {
			header[i] = title
		} else {
			header[i] = key
		}
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	row := make([]string, len(fields))
	for _, user := range users {
		for i, key := range fields {
			row[i] = fieldValue(user, key)
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	return buf.String(), w.Error()
}

// GenerateScoredCSV renders scored users as CSV with score and matched
// keyword columns appended.
func GenerateScoredCSV(users []models.ScoredUser, fields []string) (string, error) {
	if fields == nil {
		fields = allFields
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, 0, len(fields)+2)
	for _, key := range fields {
		if title, ok := csvHeaders[key]; ok {
			header = append(header, title)
		} else {
			header = append(header, key)
		}
	}
	header = append(header, "Score", "Matched Keywords")
	if err := w.Write(header); err != nil {
		return "", err
	}

	for _, scored := range users {
		row := make([]string, 0, len(fields)+2)
		for _, key := range fields {
			row = append(row, fieldValue(scored.UserRecord, key))
		}
		row = append(row, strconv.Itoa(scored.Score), matchedKeywords(scored.Matches))
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	return buf.String(), w.Error()
}

// GenerateJSON renders users as indented JSON.
func GenerateJSON(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func fieldValue(u models.UserRecord, key string) string {
	switch key {
	case "username":
		return u.Username
	case "displayName":
		return u.DisplayName
	case "bio":
		return u.Bio
	case "followersCount":
		return strconv.Itoa(u.FollowersCount)
	case "followingCount":
		return strconv.Itoa(u.FollowingCount)
	case "verified":
		return strconv.FormatBool(u.Verified)
	case "joinDate":
		return u.JoinDate
	case "location":
		return u.Location
	case "profileUrl":
		return u.ProfileURL
	case "userId":
		return u.UserID
	case "profileImageUrl":
		return u.ProfileImageURL
	}
	return ""
}

func matchedKeywords(matches []models.MatchResult) string {
	if len(matches) == 0 {
		return ""
	}
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = fmt.Sprintf("%s (%s)", m.Keyword, m.Type)
	}
	return strings.Join(parts, "; ")
}

// Exporter writes export files into a directory.
type Exporter struct {
	dir    string
	fields []string
	log    logger.Logger
}

// NewExporter creates an exporter writing into dir. A nil fields
// selection exports every field.
func NewExporter(dir string, fields []string, log logger.Logger) *Exporter {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Exporter{dir: dir, fields: fields, log: log}
}

// ExportCSV writes users as `{username}_{listType}_{timestamp}.csv` and
// returns the file path.
func (e *Exporter) ExportCSV(users []models.UserRecord, username string, listType models.ListType) (string, error) {
	content, err := GenerateCSV(users, e.fields)
	if err != nil {
		return "", err
	}
	return e.write(username, listType, "csv", []byte(content), len(users))
}

// ExportJSON writes users as `{username}_{listType}_{timestamp}.json`.
func (e *Exporter) ExportJSON(users []models.UserRecord, username string, listType models.ListType) (string, error) {
	content, err := GenerateJSON(users)
	if err != nil {
		return "", err
	}
	return e.write(username, listType, "json", content, len(users))
}

// ExportScoredCSV writes scored users with score and match columns.
func (e *Exporter) ExportScoredCSV(users []models.ScoredUser, username string, listType models.ListType) (string, error) {
	content, err := GenerateScoredCSV(users, e.fields)
	if err != nil {
		return "", err
	}
	return e.write(username, listType, "csv", []byte(content), len(users))
}

// ExportScoredJSON writes scored users as indented JSON including the
// match details.
func (e *Exporter) ExportScoredJSON(users []models.ScoredUser, username string, listType models.ListType) (string, error) {
	content, err := GenerateJSON(users)
	if err != nil {
		return "", err
	}
	return e.write(username, listType, "json", content, len(users))
}

func (e *Exporter) write(username string, listType models.ListType, ext string, content []byte, count int) (string, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s_%s.%s", username, listType, formatTimestamp(time.Now()), ext)
	path := filepath.Join(e.dir, filename)

	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	e.log.WithFields(map[string]interface{}{
		"path":  path,
		"users": count,
	}).Info("Export written")
	return path, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15-04-05")
}
