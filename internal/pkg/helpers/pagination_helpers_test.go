package helpers

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestPageOffset(t *testing.T) {
	assert.Equal(t, uint64(40), NewPage(3, 20).Offset())

	p := NewPage(0, 500)
	assert.Equal(t, uint64(0), p.Offset())
	assert.Equal(t, DefaultPageSize, p.Size)
}

func TestPageInfo(t *testing.T) {
	info := NewPage(2, 10).Info(42)
	assert.Equal(t, 5, info.TotalPages)
	assert.Equal(t, 2, info.CurrentPage)

	assert.Equal(t, 1, NewPage(1, 10).Info(0).TotalPages)
	assert.Equal(t, 1, NewPage(9, 10).Info(5).CurrentPage)
}

func TestPageFromQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=abc&size=1000", nil)

	p := PageFromQuery(c)
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, DefaultPageSize, p.Size)
}
