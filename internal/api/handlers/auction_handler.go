package handlers

import (
	"net/http"
	"time"

	"auction-house/internal/api/middleware"
	"auction-house/internal/domain"
	"auction-house/internal/services"
	"auction-house/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AuctionHandler exposes the facade over HTTP. Reads are public; mutating
// routes sit behind the auth middleware and trust its user id.
type AuctionHandler struct {
	auctions *services.AuctionService
	log      logger.Logger
}

func NewAuctionHandler(auctions *services.AuctionService, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{auctions: auctions, log: log}
}

// Register wires the handler routes onto an echo group. The auth middleware
// guards every mutating route plus the owner listing.
func (h *AuctionHandler) Register(g *echo.Group, auth echo.MiddlewareFunc) {
	g.GET("/auctions", h.List)
	g.GET("/auctions/:id", h.Get)
	g.POST("/auctions", h.Create, auth)
	g.PUT("/auctions/:id", h.Update, auth)
	g.DELETE("/auctions/:id", h.Delete, auth)
	g.POST("/auctions/:id/bid", h.PlaceBid, auth)
	g.GET("/my-auctions", h.MyAuctions, auth)
}

type CreateAuctionRequest struct {
	ItemName    string    `json:"item_name"`
	Description string    `json:"description"`
	StartingBid float64   `json:"starting_bid"`
	ClosingTime time.Time `json:"closing_time"`
}

type PlaceBidRequest struct {
	Amount float64 `json:"amount"`
}

type PlaceBidResponse struct {
	Message       string    `json:"message"`
	HighestBid    float64   `json:"highest_bid"`
	HighestBidder string    `json:"highest_bidder"`
	ClosingTime   time.Time `json:"closing_time"`
}

func (h *AuctionHandler) Create(c echo.Context) error {
	var req CreateAuctionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("validation", "invalid request body"))
	}

	auction, err := h.auctions.CreateAuction(c.Request().Context(),
		middleware.UserID(c), req.ItemName, req.Description, req.StartingBid, req.ClosingTime)
	if err != nil {
		return h.reject(c, err)
	}
	return c.JSON(http.StatusCreated, auction)
}

func (h *AuctionHandler) List(c echo.Context) error {
	auctions, err := h.auctions.ListAuctions(c.Request().Context())
	if err != nil {
		return h.reject(c, err)
	}
	return c.JSON(http.StatusOK, auctions)
}

func (h *AuctionHandler) Get(c echo.Context) error {
	auction, err := h.auctions.GetAuction(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.reject(c, err)
	}
	return c.JSON(http.StatusOK, auction)
}

func (h *AuctionHandler) Update(c echo.Context) error {
	var upd domain.AuctionUpdate
	if err := c.Bind(&upd); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("validation", "invalid request body"))
	}

	auction, err := h.auctions.UpdateAuction(c.Request().Context(), c.Param("id"), middleware.UserID(c), upd)
	if err != nil {
		return h.reject(c, err)
	}
	return c.JSON(http.StatusOK, auction)
}

func (h *AuctionHandler) Delete(c echo.Context) error {
	if err := h.auctions.DeleteAuction(c.Request().Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		return h.reject(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "auction deleted successfully"})
}

func (h *AuctionHandler) PlaceBid(c echo.Context) error {
	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("validation", "invalid request body"))
	}

	result, err := h.auctions.SubmitBid(c.Request().Context(), c.Param("id"), middleware.UserID(c), req.Amount)
	if err != nil {
		return h.reject(c, err)
	}
	return c.JSON(http.StatusOK, PlaceBidResponse{
		Message:       "bid placed successfully",
		HighestBid:    result.HighestBid,
		HighestBidder: result.HighestBidder,
		ClosingTime:   result.ClosingTime,
	})
}

func (h *AuctionHandler) MyAuctions(c echo.Context) error {
	auctions, err := h.auctions.ListOwnedAuctions(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return h.reject(c, err)
	}
	return c.JSON(http.StatusOK, auctions)
}

// reject maps the engine's error kinds onto HTTP statuses; every rejection
// keeps its kind and reason so the UI can show a specific message.
func (h *AuctionHandler) reject(c echo.Context, err error) error {
	kind := domain.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case domain.KindValidation, domain.KindInvalidAmount:
		status = http.StatusBadRequest
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindForbidden:
		status = http.StatusForbidden
	case domain.KindClosed, domain.KindBidTooLow, domain.KindConflict:
		status = http.StatusConflict
	case domain.KindStorage:
		h.log.Error("request failed", "path", c.Path(), "error", err)
		return c.JSON(status, errorBody(string(kind), "internal server error"))
	}

	return c.JSON(status, errorBody(string(kind), domain.ReasonOf(err)))
}

func errorBody(kind, reason string) map[string]string {
	return map[string]string{"error": kind, "message": reason}
}
