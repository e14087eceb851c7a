package handler

import (
	"errors"
	"net/http"
	"strconv"

	"socialboard/internal/models"
	"socialboard/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PostHandler serves the feed: create, paginated list, like.
type PostHandler struct {
	DB       *gorm.DB
	PageSize int
}

func NewPostHandler(db *gorm.DB, pageSize int) *PostHandler {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &PostHandler{DB: db, PageSize: pageSize}
}

type createPostReq struct {
	Content string `json:"content" binding:"required"`
}

type postResp struct {
	ID         uint   `json:"id"`
	Content    string `json:"content"`
	Author     string `json:"author"`
	LikesCount int    `json:"likes_count"`
	CreatedAt  string `json:"created_at"`
}

func toPostResp(p *models.Post) postResp {
	return postResp{
		ID:         p.ID,
		Content:    p.Content,
		Author:     p.Author.Username,
		LikesCount: p.LikesCount,
		CreatedAt:  p.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func (h *PostHandler) CreatePost(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	var req createPostReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}
	if err := util.ValidatePostContent(req.Content); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, err.Error())
		return
	}

	post := models.Post{
		AuthorID: user.ID,
		Content:  req.Content,
	}
	if err := h.DB.Create(&post).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "create post failed")
		return
	}
	post.Author = *user

	util.Success(c, util.Response{
		"post": toPostResp(&post),
	})
}

// ListPosts returns the feed newest-first with page/size pagination
// (page is zero-based, for infinite scroll).
func (h *PostHandler) ListPosts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	if page < 0 {
		page = 0
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(h.PageSize)))
	if size <= 0 || size > 100 {
		size = h.PageSize
	}

	var total int64
	if err := h.DB.Model(&models.Post{}).Count(&total).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "list posts failed")
		return
	}

	var posts []models.Post
	if err := h.DB.Preload("Author").
		Order("created_at DESC, id DESC").
		Offset(page * size).
		Limit(size).
		Find(&posts).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "list posts failed")
		return
	}

	items := make([]postResp, 0, len(posts))
	for i := range posts {
		items = append(items, toPostResp(&posts[i]))
	}

	util.Success(c, util.Response{
		"posts": items,
		"page":  page,
		"size":  size,
		"total": total,
	})
}

// LikePost increments the like counter and returns the updated post.
func (h *PostHandler) LikePost(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid post id")
		return
	}

	res := h.DB.Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("likes_count", gorm.Expr("likes_count + 1"))
	if res.Error != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "like post failed")
		return
	}
	if res.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "post not found")
		return
	}

	var post models.Post
	if err := h.DB.Preload("Author").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "post not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "like post failed")
		}
		return
	}

	util.Success(c, util.Response{
		"post": toPostResp(&post),
	})
}
