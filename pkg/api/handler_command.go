package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/posfloor/maitre/pkg/models"
)

// registerCardHandler handles POST /api/v1/command-cards.
func (s *Server) registerCardHandler(c *echo.Context) error {
	var req RegisterCardRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	card, err := s.commandService.RegisterCard(c.Request().Context(), extractActor(c), req.CardNumber)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, card)
}

// listCardsHandler handles GET /api/v1/command-cards.
func (s *Server) listCardsHandler(c *echo.Context) error {
	status := models.CardStatus(c.QueryParam("status"))

	cards, err := s.commandService.ListCards(c.Request().Context(), extractStore(c), status)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, cards)
}

// getCardHandler handles GET /api/v1/command-cards/:id.
func (s *Server) getCardHandler(c *echo.Context) error {
	card, err := s.commandService.GetCard(c.Request().Context(), extractStore(c), c.Param("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, card)
}

// getCardByNumberHandler handles GET /api/v1/command-cards/number/:number.
// Lookup by the number printed on the physical card, as scanned at the counter.
func (s *Server) getCardByNumberHandler(c *echo.Context) error {
	card, err := s.commandService.GetCardByNumber(c.Request().Context(), extractStore(c), c.Param("number"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, card)
}

// blockCardHandler handles POST /api/v1/command-cards/:id/block.
func (s *Server) blockCardHandler(c *echo.Context) error {
	card, err := s.commandService.BlockCard(c.Request().Context(), extractActor(c), c.Param("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, card)
}

// unblockCardHandler handles POST /api/v1/command-cards/:id/unblock.
func (s *Server) unblockCardHandler(c *echo.Context) error {
	card, err := s.commandService.UnblockCard(c.Request().Context(), extractActor(c), c.Param("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, card)
}

// setCardStatusHandler handles POST /api/v1/command-cards/:id/status.
// IN_USE is rejected here: that status is owned by the session lifecycle.
func (s *Server) setCardStatusHandler(c *echo.Context) error {
	var req CardStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	card, err := s.commandService.SetCardStatus(c.Request().Context(), extractActor(c), c.Param("id"), models.CardStatus(req.Status))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, card)
}

// openCommandSessionHandler handles POST /api/v1/command-cards/:id/sessions.
// Claims the card for a new consumption session.
func (s *Server) openCommandSessionHandler(c *echo.Context) error {
	var req models.OpenSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, err := s.commandService.OpenSession(c.Request().Context(), extractActor(c), c.Param("id"), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, session)
}

// listCommandSessionsHandler handles GET /api/v1/command-cards/sessions.
func (s *Server) listCommandSessionsHandler(c *echo.Context) error {
	status := models.SessionStatus(c.QueryParam("status"))

	sessions, err := s.commandService.ListSessions(c.Request().Context(), extractStore(c), status)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, sessions)
}

// getCommandSessionHandler handles GET /api/v1/command-cards/sessions/:id.
func (s *Server) getCommandSessionHandler(c *echo.Context) error {
	session, err := s.commandService.GetSession(c.Request().Context(), extractStore(c), c.Param("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// updateCommandSessionHandler handles PUT /api/v1/command-cards/sessions/:id.
// The body must carry the version the client read; a stale version is a 409.
func (s *Server) updateCommandSessionHandler(c *echo.Context) error {
	var req models.UpdateSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, err := s.commandService.UpdateSession(c.Request().Context(), extractActor(c), c.Param("id"), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// addCommandItemHandler handles POST /api/v1/command-cards/sessions/:id/items.
// Charges an item to the session, enforcing the credit limit.
func (s *Server) addCommandItemHandler(c *echo.Context) error {
	var req models.AddItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	item, err := s.commandService.AddItem(c.Request().Context(), extractActor(c), c.Param("id"), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}

// listCommandItemsHandler handles GET /api/v1/command-cards/sessions/:id/items.
func (s *Server) listCommandItemsHandler(c *echo.Context) error {
	items, err := s.commandService.ListItems(c.Request().Context(), extractStore(c), c.Param("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// closeCommandSessionHandler handles POST /api/v1/command-cards/sessions/:id/close.
// Settles the session and releases the card.
func (s *Server) closeCommandSessionHandler(c *echo.Context) error {
	session, err := s.commandService.CloseSession(c.Request().Context(), extractActor(c), c.Param("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// transferCommandSessionHandler handles POST /api/v1/command-cards/sessions/:id/transfer.
// Moves an open session to another card, usually after the original is lost.
func (s *Server) transferCommandSessionHandler(c *echo.Context) error {
	var req TransferSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, err := s.commandService.TransferSession(c.Request().Context(), extractActor(c), c.Param("id"), req.ToCardID, req.Reason)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}
