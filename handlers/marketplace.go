package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kyanzach/HGF-Connect-V2-sub001/config"
	"github.com/kyanzach/HGF-Connect-V2-sub001/marketplace"
	"github.com/kyanzach/HGF-Connect-V2-sub001/middleware"
	"github.com/kyanzach/HGF-Connect-V2-sub001/models"
)

type MarketplaceAPI struct {
	service *marketplace.Service
	log     *zap.Logger
}

func NewMarketplaceAPI(service *marketplace.Service, log *zap.Logger) *MarketplaceAPI {
	if log == nil {
		log = zap.NewNop()
	}
	return &MarketplaceAPI{service: service, log: log}
}

// Register mounts the marketplace routes on rg (normally /api/marketplace).
func (api *MarketplaceAPI) Register(rg *gin.RouterGroup, cfg *config.Config, limiter *middleware.RateLimiter) {
	public := rg.Group("/")
	public.Use(middleware.OptionalAuth(cfg))
	{
		public.GET("/listings/:id", api.GetListing)
		public.POST("/listings/:id/prospects", limiter.Middleware(), api.SubmitProspect)
		public.POST("/listings/:id/impressions", limiter.Middleware(), api.RecordImpression)
	}

	member := rg.Group("/")
	member.Use(middleware.AuthMiddleware(cfg))
	{
		member.POST("/listings", api.CreateListing)
		member.DELETE("/listings/:id", api.RemoveListing)

		member.POST("/listings/:id/share", api.CreateShare)
		member.GET("/listings/:id/share", api.GetShare)
		member.GET("/listings/:id/share/qr", api.ShareQR)
		member.GET("/shares", api.MyShares)

		member.GET("/listings/:id/prospects", api.ListProspects)
		member.POST("/listings/:id/prospects/:prospectId/confirm", api.ConfirmSale)
		member.POST("/listings/:id/prospects/:prospectId/reject", api.RejectProspect)
	}
}

// GetListing - reveal-gated listing detail
func (api *MarketplaceAPI) GetListing(c *gin.Context) {
	page, err := api.service.ListingView(c.Request.Context(),
		c.Param("id"), middleware.CurrentMemberID(c), c.Query("ref"), c.ClientIP())
	if err != nil {
		respondError(c, api.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"listing": page.Listing,
		"isOwner": page.IsOwner,
		"ref":     page.Ref,
	})
}

type prospectRequest struct {
	Action      string  `json:"action"`
	ShareCode   string  `json:"shareCode"`
	VisitorName string  `json:"visitorName"`
	Phone       *string `json:"phone" binding:"omitempty,max=40"`
	Email       *string `json:"email" binding:"omitempty,max=255"`
	Message     *string `json:"message" binding:"omitempty,max=2000"`
	Consent     bool    `json:"consent"`
}

type revealResponse struct {
	Success bool `json:"success"`
	models.Reveal
}

// SubmitProspect - the only anonymous path that returns the discounted price
func (api *MarketplaceAPI) SubmitProspect(c *gin.Context) {
	var req prospectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	reveal, err := api.service.SubmitProspect(c.Request.Context(), marketplace.ProspectInput{
		ListingID:   c.Param("id"),
		Action:      req.Action,
		ShareCode:   req.ShareCode,
		VisitorName: req.VisitorName,
		Phone:       req.Phone,
		Email:       req.Email,
		Message:     req.Message,
		Consent:     req.Consent,
		ClientIP:    c.ClientIP(),
		ViewerID:    middleware.CurrentMemberID(c),
	})
	if err != nil {
		respondError(c, api.log, err)
		return
	}
	c.JSON(http.StatusCreated, revealResponse{Success: true, Reveal: reveal})
}

type impressionRequest struct {
	Kind      string `json:"kind"`
	ShareCode string `json:"shareCode"`
}

// RecordImpression - best-effort event log, always accepted
func (api *MarketplaceAPI) RecordImpression(c *gin.Context) {
	var req impressionRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		api.service.RecordImpression(c.Request.Context(), c.Param("id"), req.ShareCode, req.Kind, c.ClientIP())
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}

type listingRequest struct {
	Title           string           `json:"title" binding:"required"`
	Description     string           `json:"description"`
	OriginalPrice   decimal.Decimal  `json:"originalPrice"`
	DiscountedPrice *decimal.Decimal `json:"discountedPrice"`
	LoveGiftAmount  decimal.Decimal  `json:"loveGiftAmount"`
}

func (api *MarketplaceAPI) CreateListing(c *gin.Context) {
	var req listingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	listing, err := api.service.CreateListing(c.Request.Context(), middleware.CurrentMemberID(c), marketplace.ListingInput{
		Title:           req.Title,
		Description:     req.Description,
		OriginalPrice:   req.OriginalPrice,
		DiscountedPrice: req.DiscountedPrice,
		LoveGiftAmount:  req.LoveGiftAmount,
	})
	if err != nil {
		respondError(c, api.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "listing": listing})
}

func (api *MarketplaceAPI) RemoveListing(c *gin.Context) {
	if err := api.service.RemoveListing(c.Request.Context(), middleware.CurrentMemberID(c), c.Param("id")); err != nil {
		respondError(c, api.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Listing removed"})
}

// CreateShare - get or create the caller's share link
func (api *MarketplaceAPI) CreateShare(c *gin.Context) {
	info, err := api.service.GetOrCreateShare(c.Request.Context(), c.Param("id"), middleware.CurrentMemberID(c))
	if err != nil {
		respondError(c, api.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "share": info})
}

func (api *MarketplaceAPI) GetShare(c *gin.Context) {
	info, err := api.service.GetShare(c.Request.Context(), c.Param("id"), middleware.CurrentMemberID(c))
	if err != nil {
		respondError(c, api.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "share": info})
}

func (api *MarketplaceAPI) ShareQR(c *gin.Context) {
	png, err := api.service.ShareQR(c.Request.Context(), c.Param("id"), middleware.CurrentMemberID(c))
	if err != nil {
		respondError(c, api.log, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="share-%s.png"`, c.Param("id")))
	c.Data(http.StatusOK, "image/png", png)
}

// MyShares - the member's Love Gifts dashboard
func (api *MarketplaceAPI) MyShares(c *gin.Context) {
	shares, totals, err := api.service.ListMyShares(c.Request.Context(), middleware.CurrentMemberID(c))
	if err != nil {
		respondError(c, api.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "shares": shares, "totals": totals})
}

func (api *MarketplaceAPI) ListProspects(c *gin.Context) {
	prospects, err := api.service.ListProspects(c.Request.Context(), middleware.CurrentMemberID(c), c.Param("id"))
	if err != nil {
		respondError(c, api.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "prospects": prospects})
}

type saleResponse struct {
	Success bool `json:"success"`
	models.SaleOutcome
}

func (api *MarketplaceAPI) ConfirmSale(c *gin.Context) {
	out, err := api.service.ConfirmSale(c.Request.Context(),
		middleware.CurrentMemberID(c), c.Param("id"), c.Param("prospectId"))
	if err != nil {
		respondError(c, api.log, err)
		return
	}
	c.JSON(http.StatusOK, saleResponse{Success: true, SaleOutcome: out})
}

func (api *MarketplaceAPI) RejectProspect(c *gin.Context) {
	err := api.service.RejectProspect(c.Request.Context(),
		middleware.CurrentMemberID(c), c.Param("id"), c.Param("prospectId"))
	if err != nil {
		respondError(c, api.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Prospect rejected"})
}
