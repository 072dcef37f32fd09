// Package helpers holds small request helpers shared by controllers.
package helpers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models/dto"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is a 1-based page request
type Page struct {
	Number int
	Size   int
}

// NewPage clamps number and size into range
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	return Page{Number: number, Size: size}
}

// PageFromQuery reads ?page= and ?size=, ignoring values that do not parse
func PageFromQuery(c *gin.Context) Page {
	number, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("size"))
	return NewPage(number, size)
}

// Offset is the number of rows before this page
func (p Page) Offset() uint64 {
	return uint64((p.Number - 1) * p.Size)
}

// Info describes the page against total matching rows. An empty listing still
// has one page, and the current page never points past the last one.
func (p Page) Info(total int64) dto.PaginationInfo {
	pages := int((total + int64(p.Size) - 1) / int64(p.Size))
	if pages == 0 {
		pages = 1
	}
	current := p.Number
	if current > pages {
		current = pages
	}
	return dto.PaginationInfo{
		CurrentPage: current,
		TotalPages:  pages,
		PageSize:    p.Size,
		TotalItems:  total,
	}
}
