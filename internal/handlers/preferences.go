package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// PreferencesHandler serves console preferences and the recent searches
type PreferencesHandler struct {
	prefs Preferences
}

// NewPreferencesHandler creates a new preferences handler
func NewPreferencesHandler(prefs Preferences) *PreferencesHandler {
	return &PreferencesHandler{prefs: prefs}
}

// Get returns one preference.
func (h *PreferencesHandler) Get(c *fiber.Ctx) error {
	pref, ok, err := h.prefs.Get(c.UserContext(), c.Params("key"))
	if err != nil {
		return respondError(c, err)
	}
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Preference not set",
			"code":  "ERR_NOT_FOUND",
		})
	}
	return c.JSON(pref)
}

// PreferenceRequest represents the preference body
type PreferenceRequest struct {
	Value string `json:"value"`
}

// Put stores one preference.
func (h *PreferencesHandler) Put(c *fiber.Ctx) error {
	var req PreferenceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", "ERR_INVALID_BODY")
	}
	key := c.Params("key")
	if err := h.prefs.Set(c.UserContext(), key, req.Value); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"key": key, "value": req.Value})
}

// Searches returns the recent searches, newest first.
func (h *PreferencesHandler) Searches(c *fiber.Ctx) error {
	searches, err := h.prefs.RecentSearches(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"searches": searches})
}

// SearchRequest represents the search body
type SearchRequest struct {
	Query string `json:"query"`
}

// AddSearch records a search.
func (h *PreferencesHandler) AddSearch(c *fiber.Ctx) error {
	var req SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", "ERR_INVALID_BODY")
	}
	if err := h.prefs.AddSearch(c.UserContext(), req.Query); err != nil {
		return respondError(c, err)
	}
	return h.Searches(c)
}
