package server

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/Veraticus/quotewright/internal/catalog"
	"github.com/Veraticus/quotewright/internal/model"
	"github.com/Veraticus/quotewright/internal/prefs"
	"github.com/Veraticus/quotewright/internal/quote"
)

// SearchRequest is the body of search_pricing_items.
type SearchRequest struct {
	Term    string            `json:"term"`
	Format  model.QuoteFormat `json:"quote_format" binding:"omitempty,oneof=standard insurance"`
	QuoteID int64             `json:"quote_id" binding:"gte=0"`
}

// ApplyPresetRequest is the body of apply_trade_preset.
type ApplyPresetRequest struct {
	Format  model.QuoteFormat `json:"quote_format" binding:"omitempty,oneof=standard insurance"`
	QuoteID int64             `json:"quote_id" binding:"required,gt=0"`
	TradeID int64             `json:"trade_id" binding:"required,gt=0"`
	Persist bool              `json:"persist"`
}

// SaveGroupsRequest is the body of save_quote_groups.
type SaveGroupsRequest struct {
	Groups  []quote.GroupInput `json:"groups"`
	QuoteID int64              `json:"quote_id" binding:"required,gt=0"`
}

// SaveGroupsResponse is the data of a save_quote_groups reply.
type SaveGroupsResponse struct {
	Groups  []model.QuoteGroup `json:"groups"`
	Invalid []string           `json:"invalid"`
	Totals  Totals             `json:"totals"`
}

// QuoteRequest is the body of get_quote_totals.
type QuoteRequest struct {
	QuoteID int64 `json:"quote_id" binding:"required,gt=0"`
}

// SetFormatRequest is the body of set_quote_format.
type SetFormatRequest struct {
	Format  model.QuoteFormat `json:"quote_format" binding:"required,oneof=standard insurance"`
	QuoteID int64             `json:"quote_id" binding:"required,gt=0"`
}

// SetFormatResponse is the data of a set_quote_format reply.
type SetFormatResponse struct {
	Format model.QuoteFormat  `json:"quote_format"`
	Groups []model.QuoteGroup `json:"groups"`
}

func bind(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return badRequest(err)
	}
	return nil
}

func (s *Server) saveTablePrefs(c *gin.Context) (any, error) {
	var req prefs.SaveRequest
	if err := bind(c, &req); err != nil {
		return nil, err
	}
	for col, w := range req.Widths {
		if w <= 0 {
			return nil, badRequest(fmt.Errorf("width of %q must be positive", col))
		}
	}

	pc := req.Context.Normalized()
	if err := s.prefs.Save(c.Request.Context(), pc, prefs.Payload{Widths: req.Widths, Order: req.Order}); err != nil {
		return nil, err
	}
	return gin.H{"key": pc.Key()}, nil
}

func (s *Server) getTablePrefs(c *gin.Context) (any, error) {
	var req prefs.LoadRequest
	if err := bind(c, &req); err != nil {
		return nil, err
	}

	p, found, err := s.prefs.Load(c.Request.Context(), req.Context.Normalized())
	if err != nil {
		return nil, err
	}
	resp := prefs.LoadResponse{Found: found, Widths: p.Widths, Order: p.Order}
	if resp.Widths == nil {
		resp.Widths = map[string]int{}
	}
	if resp.Order == nil {
		resp.Order = []string{}
	}
	return resp, nil
}

func (s *Server) searchPricingItems(c *gin.Context) (any, error) {
	var req SearchRequest
	if err := bind(c, &req); err != nil {
		return nil, err
	}
	return s.catalog.Search(c.Request.Context(), catalog.SearchRequest{
		Format:  req.Format,
		Term:    req.Term,
		QuoteID: req.QuoteID,
	})
}

func (s *Server) applyTradePreset(c *gin.Context) (any, error) {
	var req ApplyPresetRequest
	if err := bind(c, &req); err != nil {
		return nil, err
	}
	return s.catalog.ApplyPreset(c.Request.Context(), catalog.PresetRequest{
		Format:  req.Format,
		QuoteID: req.QuoteID,
		TradeID: req.TradeID,
		Persist: req.Persist,
	})
}

func (s *Server) saveQuoteGroups(c *gin.Context) (any, error) {
	var req SaveGroupsRequest
	if err := bind(c, &req); err != nil {
		return nil, err
	}

	result, err := s.quotes.SaveGroups(c.Request.Context(), req.QuoteID, req.Groups)
	if err != nil {
		return nil, err
	}
	invalid := result.Invalid
	if invalid == nil {
		invalid = []string{}
	}
	return SaveGroupsResponse{
		Groups:  result.Groups,
		Invalid: invalid,
		Totals:  NewTotals(result.Totals),
	}, nil
}

func (s *Server) getQuoteTotals(c *gin.Context) (any, error) {
	var req QuoteRequest
	if err := bind(c, &req); err != nil {
		return nil, err
	}

	totals, err := s.quotes.Totals(c.Request.Context(), req.QuoteID)
	if err != nil {
		return nil, err
	}
	return NewTotals(totals), nil
}

func (s *Server) setQuoteFormat(c *gin.Context) (any, error) {
	var req SetFormatRequest
	if err := bind(c, &req); err != nil {
		return nil, err
	}

	groups, err := s.quotes.SetFormat(c.Request.Context(), req.QuoteID, req.Format)
	if err != nil {
		return nil, err
	}
	return SetFormatResponse{Format: req.Format, Groups: groups}, nil
}
