package domain

import "fmt"

// Page is one window of the history, most recent first.
type Page struct {
	Records  []Summary `json:"requests"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"limit"`
}

// Offset converts a 1-based page number into a skip count.
func Offset(page, pageSize int) int {
	return (page - 1) * pageSize
}

// PageCount is the number of non-empty pages for total records.
func PageCount(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	size := int64(pageSize)
	return int((total + size - 1) / size)
}

// ValidateWindow checks the raw offset/limit contract of ListPage.
func ValidateWindow(offset, limit int) error {
	if limit < 1 {
		return InvalidRequest(fmt.Sprintf("limit must be >= 1, got %d", limit))
	}
	if offset < 0 {
		return InvalidRequest(fmt.Sprintf("offset must be >= 0, got %d", offset))
	}
	return nil
}
