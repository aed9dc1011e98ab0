package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/food-share/internal/api/middleware"
	"github.com/d60-Lab/food-share/internal/service"
	"github.com/d60-Lab/food-share/pkg/response"
)

type postDonationRequest struct {
	service.PostDonationInput
	DonorName string `json:"donorName"`
}

// PostDonation 发布捐赠
// @Summary 发布捐赠
// @Tags 捐赠
// @Accept json
// @Produce json
// @Param X-User-ID header string true "捐赠方ID"
// @Param request body postDonationRequest true "捐赠信息"
// @Success 201 {object} response.Response{data=model.Donation}
// @Failure 400 {object} response.Response
// @Router /api/v1/donations [post]
func (h *Handler) PostDonation(c *gin.Context) {
	var req postDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	donor := service.Donor{ID: middleware.UserID(c), Name: req.DonorName}
	d, err := h.donationService.Post(c.Request.Context(), donor, req.PostDonationInput)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, d)
}

// ListDonations 按角色投影捐赠列表
// @Summary 浏览捐赠（管理员看到全部，其他角色只看到可认领的）
// @Tags 捐赠
// @Produce json
// @Param X-User-Role header string false "角色 donor/receiver/admin"
// @Param q query string false "关键字，匹配名称/描述/捐赠方"
// @Success 200 {object} response.Response{data=[]model.Donation}
// @Router /api/v1/donations [get]
func (h *Handler) ListDonations(c *gin.Context) {
	list, err := h.viewService.AvailableFor(c.Request.Context(), middleware.Role(c), c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, list)
}

// GetDonation 查询单条捐赠
// @Summary 查询捐赠
// @Tags 捐赠
// @Produce json
// @Param id path string true "捐赠ID"
// @Success 200 {object} response.Response{data=model.Donation}
// @Failure 404 {object} response.Response
// @Router /api/v1/donations/{id} [get]
func (h *Handler) GetDonation(c *gin.Context) {
	d, err := h.donationService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, d)
}

// ClaimDonation 认领
// @Summary 认领捐赠
// @Tags 认领
// @Produce json
// @Param X-User-ID header string true "接收方ID"
// @Param id path string true "捐赠ID"
// @Success 200 {object} response.Response{data=model.Donation}
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/donations/{id}/claim [post]
func (h *Handler) ClaimDonation(c *gin.Context) {
	d, err := h.claimService.Claim(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, d)
}

// CancelClaim 取消认领
// @Summary 取消认领（仅认领人）
// @Tags 认领
// @Produce json
// @Param X-User-ID header string true "认领人ID"
// @Param id path string true "捐赠ID"
// @Success 200 {object} response.Response{data=model.Donation}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/donations/{id}/cancel [post]
func (h *Handler) CancelClaim(c *gin.Context) {
	d, err := h.claimService.Cancel(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, d)
}

// ListDonorDonations 捐赠方自己的捐赠
// @Summary 捐赠方的捐赠列表
// @Tags 捐赠
// @Produce json
// @Param donor_id path string true "捐赠方ID"
// @Success 200 {object} response.Response{data=[]model.Donation}
// @Router /api/v1/donors/{donor_id}/donations [get]
func (h *Handler) ListDonorDonations(c *gin.Context) {
	list, err := h.viewService.ForDonor(c.Request.Context(), c.Param("donor_id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, list)
}

// DonorStats 捐赠方统计与徽章
// @Summary 捐赠方统计
// @Tags 捐赠
// @Produce json
// @Param donor_id path string true "捐赠方ID"
// @Success 200 {object} response.Response{data=service.DonorStats}
// @Router /api/v1/donors/{donor_id}/stats [get]
func (h *Handler) DonorStats(c *gin.Context) {
	st, err := h.viewService.DonorStats(c.Request.Context(), c.Param("donor_id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, st)
}

// ListClaimantDonations 接收方已认领的捐赠
// @Summary 已认领列表
// @Tags 认领
// @Produce json
// @Param claimant_id path string true "接收方ID"
// @Success 200 {object} response.Response{data=[]model.Donation}
// @Router /api/v1/claimants/{claimant_id}/donations [get]
func (h *Handler) ListClaimantDonations(c *gin.Context) {
	list, err := h.viewService.ForClaimant(c.Request.Context(), c.Param("claimant_id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, list)
}
