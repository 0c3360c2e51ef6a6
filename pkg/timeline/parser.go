// Package timeline parses X GraphQL timeline responses into user records
// and pagination cursors, and classifies the GraphQL queries that produce
// them.
//
// Responses nest user data under
// data.user.result.timeline.timeline.instructions[].entries[]. User
// entries carry an entryId starting with "user-" and hold
// user_results.result with profile fields split across legacy and core.
// Cursor entries start with "cursor-bottom-". The structure shifts
// between API revisions, so every known path is tried before falling
// back to a bounded recursive search.
package timeline

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"xtractr/pkg/errors"
	"xtractr/pkg/models"
)

// Page is the outcome of parsing one GraphQL response.
type Page struct {
	Users  []models.UserRecord
	Cursor string
}

// Parse decodes raw response bytes and extracts the page.
func Parse(data []byte) (*Page, error) {
	var root map[string]interface{}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to decode timeline response: %v", err),
		}
	}
	return ParseResponse(root), nil
}

// ParseResponse extracts user entries and the bottom cursor from a
// decoded GraphQL response.
func ParseResponse(root map[string]interface{}) *Page {
	page := &Page{Users: []models.UserRecord{}}

	for _, raw := range extractEntries(root) {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		entryID, _ := entry["entryId"].(string)

		switch {
		case strings.HasPrefix(entryID, "user-"):
			if user, ok := extractUser(entry); ok {
				page.Users = append(page.Users, user)
			}
		case strings.HasPrefix(entryID, "cursor-bottom-") || strings.HasPrefix(entryID, "cursor-bottom|"):
			page.Cursor = cursorValue(entry)
		default:
			// Module entry (TimelineTimelineModule) with nested user items
			for _, item := range asSlice(dig(entry, "content", "items")) {
				if user, ok := extractUserFromItem(item); ok {
					page.Users = append(page.Users, user)
				}
			}
		}
	}

	// Module-based pagination delivers users via TimelineAddToModule and
	// cursor updates via TimelineReplaceEntry.
	for _, raw := range timelineInstructions(root) {
		instruction, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		instructionType, _ := instruction["type"].(string)

		if instructionType == "TimelineAddToModule" {
			for _, item := range asSlice(instruction["moduleItems"]) {
				if user, ok := extractUserFromItem(item); ok {
					page.Users = append(page.Users, user)
				}
			}
		}
		if page.Cursor == "" && instructionType == "TimelineReplaceEntry" {
			if entry, ok := instruction["entry"].(map[string]interface{}); ok {
				entryID, _ := entry["entryId"].(string)
				if strings.HasPrefix(entryID, "cursor-bottom-") || strings.HasPrefix(entryID, "cursor-bottom|") {
					page.Cursor = cursorValue(entry)
				}
			}
		}
		if page.Cursor == "" {
			for _, raw := range asSlice(instruction["entries"]) {
				entry, ok := raw.(map[string]interface{})
				if !ok {
					continue
				}
				entryID, _ := entry["entryId"].(string)
				if strings.HasPrefix(entryID, "cursor-bottom-") || strings.HasPrefix(entryID, "cursor-bottom|") {
					page.Cursor = cursorValue(entry)
				}
			}
		}
	}

	return page
}

// extractEntries walks the known instruction path, then falls back to a
// recursive search for any array of entryId-bearing objects.
func extractEntries(root map[string]interface{}) []interface{} {
	for _, raw := range timelineInstructions(root) {
		instruction, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if entries := asSlice(instruction["entries"]); len(entries) > 0 {
			return entries
		}
		if instructionType, _ := instruction["type"].(string); instructionType == "TimelineAddEntries" {
			if entries := asSlice(instruction["entries"]); entries != nil {
				return entries
			}
		}
	}
	return findEntriesRecursive(root, 0)
}

func timelineInstructions(root map[string]interface{}) []interface{} {
	timeline := asMap(dig(root, "data", "user", "result", "timeline", "timeline"))
	if timeline == nil {
		timeline = asMap(dig(root, "data", "user", "result", "timeline"))
	}
	if timeline == nil {
		return nil
	}
	return asSlice(timeline["instructions"])
}

func findEntriesRecursive(value interface{}, depth int) []interface{} {
	if depth > 10 || value == nil {
		return nil
	}

	if arr, ok := value.([]interface{}); ok {
		for _, item := range arr {
			if m, ok := item.(map[string]interface{}); ok {
				if _, has := m["entryId"]; has {
					return arr
				}
			}
		}
		for _, item := range arr {
			if found := findEntriesRecursive(item, depth+1); found != nil {
				return found
			}
		}
		return nil
	}

	if m, ok := value.(map[string]interface{}); ok {
		for _, v := range m {
			if found := findEntriesRecursive(v, depth+1); found != nil {
				return found
			}
		}
	}
	return nil
}

// extractUserFromItem handles module items, which may wrap the content
// in an extra "item" object.
func extractUserFromItem(raw interface{}) (models.UserRecord, bool) {
	item, ok := raw.(map[string]interface{})
	if !ok {
		return models.UserRecord{}, false
	}
	if user, ok := extractUser(item); ok {
		return user, true
	}
	if inner := asMap(item["item"]); inner != nil {
		return extractUser(inner)
	}
	return models.UserRecord{}, false
}

// extractUser normalizes a timeline entry into a UserRecord.
func extractUser(entry map[string]interface{}) (models.UserRecord, bool) {
	userResult := findUserResult(entry)
	if userResult == nil {
		return models.UserRecord{}, false
	}

	restID := asID(userResult["rest_id"])
	if restID == "" {
		restID = asID(userResult["id"])
	}
	if restID == "" {
		return models.UserRecord{}, false
	}

	sources := collectDataSources(userResult)

	username := findString(sources, "screen_name")
	bio := findString(sources, "description")
	if bio == "" {
		bio = findString(sources, "profile_bio")
	}

	// location can be a string or an object {location: "..."} depending
	// on API revision
	location := ""
	if raw := findField(sources, "location"); raw != nil {
		switch v := raw.(type) {
		case string:
			location = v
		case map[string]interface{}:
			location, _ = v["location"].(string)
		}
	}

	profileImageURL := findString(sources, "profile_image_url_https")
	if profileImageURL == "" {
		if avatar := asMap(userResult["avatar"]); avatar != nil {
			profileImageURL, _ = avatar["image_url"].(string)
		}
	}

	verified := asBool(userResult["is_blue_verified"])
	if !verified {
		verified = asBool(findField(sources, "verified"))
	}

	followers, ok := findInt(sources, "followers_count")
	if !ok {
		followers, _ = findInt(sources, "normal_followers_count")
	}
	following, _ := findInt(sources, "friends_count")

	profileURL := ""
	if username != "" {
		profileURL = "https://x.com/" + username
	}

	return models.UserRecord{
		UserID:          restID,
		Username:        username,
		DisplayName:     findString(sources, "name"),
		Bio:             strings.ReplaceAll(bio, "\n", " "),
		FollowersCount:  followers,
		FollowingCount:  following,
		Verified:        verified,
		JoinDate:        findString(sources, "created_at"),
		Location:        location,
		ProfileURL:      profileURL,
		ProfileImageURL: profileImageURL,
	}, true
}

// findUserResult locates the user_results.result object within an
// entry, trying known wrappings first and a bounded recursive search
// last. Unavailable users resolve to nil.
func findUserResult(entry map[string]interface{}) map[string]interface{} {
	paths := [][]string{
		{"content", "itemContent", "user_results", "result"},
		{"content", "entryContent", "user_results", "result"},
		{"item", "itemContent", "user_results", "result"},
		{"itemContent", "user_results", "result"},
	}
	for _, path := range paths {
		if result := asMap(dig(entry, path...)); result != nil {
			if typename, _ := result["__typename"].(string); typename == "UserUnavailable" {
				return nil
			}
			return result
		}
	}
	return findUserResultRecursive(entry, 0)
}

func findUserResultRecursive(value interface{}, depth int) map[string]interface{} {
	if depth > 8 || value == nil {
		return nil
	}

	if arr, ok := value.([]interface{}); ok {
		for _, item := range arr {
			if found := findUserResultRecursive(item, depth+1); found != nil {
				return found
			}
		}
		return nil
	}

	m, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	if m["rest_id"] != nil && (m["legacy"] != nil || m["core"] != nil) {
		return m
	}
	for _, v := range m {
		if found := findUserResultRecursive(v, depth+1); found != nil {
			return found
		}
	}
	return nil
}

// collectDataSources gathers every object within a user result that may
// carry profile fields, in lookup priority order. The field layout moves
// between core and legacy across API revisions.
func collectDataSources(userResult map[string]interface{}) []map[string]interface{} {
	sources := []map[string]interface{}{userResult}

	if core := asMap(userResult["core"]); core != nil {
		sources = append(sources, core)
	}
	if legacy := asMap(userResult["legacy"]); legacy != nil {
		sources = append(sources, legacy)
	}

	for _, path := range [][]string{
		{"core", "user_results", "result"},
		{"core", "user_result", "result"},
	} {
		if coreResult := asMap(dig(userResult, path...)); coreResult != nil {
			sources = append(sources, coreResult)
			if legacy := asMap(coreResult["legacy"]); legacy != nil {
				sources = append(sources, legacy)
			}
		}
	}

	return sources
}

func cursorValue(entry map[string]interface{}) string {
	for _, path := range [][]string{
		{"content", "value"},
		{"content", "itemContent", "value"},
		{"content", "entryContent", "value"},
	} {
		if v, ok := dig(entry, path...).(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// ---- JSON traversal helpers ----

func dig(value interface{}, path ...string) interface{} {
	current := value
	for _, key := range path {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = m[key]
	}
	return current
}

func asMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

func asSlice(v interface{}) []interface{} {
	s, _ := v.([]interface{})
	return s
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

// asID stringifies rest_id, which arrives as a string in current
// responses but has historically been numeric.
func asID(v interface{}) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatInt(int64(id), 10)
	}
	return ""
}

// findField returns the first present, non-empty value for name across
// the sources.
func findField(sources []map[string]interface{}, name string) interface{} {
	for _, src := range sources {
		v, ok := src[name]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			continue
		}
		return v
	}
	return nil
}

func findString(sources []map[string]interface{}, name string) string {
	s, _ := findField(sources, name).(string)
	return s
}

func findInt(sources []map[string]interface{}, name string) (int, bool) {
	switch v := findField(sources, name).(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}
