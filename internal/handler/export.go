package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"socialboard/internal/models"
	"socialboard/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ExportHandler exports the current user's posts.
type ExportHandler struct {
	DB *gorm.DB
}

func NewExportHandler(db *gorm.DB) *ExportHandler {
	return &ExportHandler{DB: db}
}

func (h *ExportHandler) userPosts(c *gin.Context) ([]models.Post, bool) {
	user := currentUser(c)
	if user == nil {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return nil, false
	}

	var posts []models.Post
	if err := h.DB.Where("author_id = ?", user.ID).
		Order("created_at DESC").
		Find(&posts).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query posts failed")
		return nil, false
	}
	return posts, true
}

// ExportCSV exports the user's posts as CSV.
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	posts, ok := h.userPosts(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"posts_%s.csv\"",
		time.Now().Format("20060102")))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write([]string{"id", "content", "likes", "created_at"})
	for _, p := range posts {
		writer.Write([]string{
			strconv.FormatUint(uint64(p.ID), 10),
			p.Content,
			strconv.Itoa(p.LikesCount),
			p.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
}

// ExportXLSX exports the user's posts as an Excel workbook.
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	posts, ok := h.userPosts(c)
	if !ok {
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Posts"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Content", "Likes", "Created At"}
	for i, hdr := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, hdr)
	}

	for row, p := range posts {
		values := []interface{}{
			p.ID,
			p.Content,
			p.LikesCount,
			p.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"posts_%s.xlsx\"",
		time.Now().Format("20060102")))

	if err := f.Write(c.Writer); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "write workbook failed")
	}
}
