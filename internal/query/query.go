// Package query implements the read-side computations over a snapshot of the
// record list: text/date filtering, active-reminder selection and per-customer
// history aggregation. All functions are pure; they never touch storage.
package query

import (
	"sort"
	"strings"

	"repair-intake/internal/models"
)

// Filter returns the records matching the search term and creation-date
// window, preserving input order. An empty search term or date bound imposes
// no constraint. The term is matched case-insensitively as a substring of
// name, serial number or modem model; the phone match is a plain substring
// with no normalization. Date bounds compare lexicographically against the
// YYYY-MM-DD prefix of createdAt, which orders the same as chronologically
// for ISO-8601 dates.
func Filter(records []models.RepairRecord, searchTerm, startDate, endDate string) []models.RepairRecord {
	term := strings.ToLower(searchTerm)

	matched := make([]models.RepairRecord, 0, len(records))
	for _, r := range records {
		matchesSearch := strings.Contains(strings.ToLower(r.Name), term) ||
			strings.Contains(strings.ToLower(r.SerialNumber), term) ||
			strings.Contains(r.Phone, searchTerm) ||
			strings.Contains(strings.ToLower(r.ModemModel), term)

		date := datePart(r.CreatedAt)
		if matchesSearch &&
			(startDate == "" || date >= startDate) &&
			(endDate == "" || date <= endDate) {
			matched = append(matched, r)
		}
	}
	return matched
}

// ActiveReminders returns the records whose reminder falls on today and is
// still actionable: the record is not DELIVERED and has not been dismissed
// this session. today is a YYYY-MM-DD date. Input order is preserved.
func ActiveReminders(records []models.RepairRecord, today string, dismissed map[string]struct{}) []models.RepairRecord {
	due := make([]models.RepairRecord, 0)
	for _, r := range records {
		if r.ReminderDateTime == "" {
			continue
		}
		if _, ok := dismissed[r.ID]; ok {
			continue
		}
		if datePart(r.ReminderDateTime) == today && r.Status != models.StatusDelivered {
			due = append(due, r)
		}
	}
	return due
}

// CustomerHistory returns every record belonging to the same customer
// identity, newest visit first. Identity is structural: trimmed
// case-insensitive name equality plus trimmed phone equality. A first-visit
// customer's history is exactly their one record.
func CustomerHistory(records []models.RepairRecord, name, phone string) []models.RepairRecord {
	wantName := strings.ToLower(strings.TrimSpace(name))
	wantPhone := strings.TrimSpace(phone)

	history := make([]models.RepairRecord, 0)
	for _, r := range records {
		if strings.ToLower(strings.TrimSpace(r.Name)) == wantName &&
			strings.TrimSpace(r.Phone) == wantPhone {
			history = append(history, r)
		}
	}

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].CreatedAt > history[j].CreatedAt
	})
	return history
}

// TotalSpent sums the parsed final cost over a customer's history.
func TotalSpent(history []models.RepairRecord) int64 {
	var total int64
	for _, r := range history {
		total += ParseCost(r.FinalCost)
	}
	return total
}

// VisitCount returns the number of visits in a history.
func VisitCount(history []models.RepairRecord) int {
	return len(history)
}

// ParseCost extracts the integer value of a free-text money string. Thousands
// separators are stripped first, both the plain comma and the Arabic comma
// (U+060C) used as the Persian separator; then the leading integer is parsed,
// ignoring anything after it. Absent or unparsable values are zero. This is
// the only numeric interpretation of cost fields anywhere in the system.
func ParseCost(s string) int64 {
	s = strings.NewReplacer(",", "", "،", "").Replace(s)
	s = strings.TrimSpace(s)

	start, neg := 0, false
	if start < len(s) && (s[start] == '+' || s[start] == '-') {
		neg = s[start] == '-'
		start++
	}

	var n int64
	digits := 0
	for i := start; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int64(c-'0')
		digits++
	}
	if digits == 0 {
		return 0
	}
	if neg {
		return -n
	}
	return n
}

// datePart returns the YYYY-MM-DD prefix of an ISO-8601 datetime string.
func datePart(iso string) string {
	if i := strings.IndexByte(iso, 'T'); i >= 0 {
		return iso[:i]
	}
	return iso
}
