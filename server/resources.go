package server

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"postboard/accounts"
	"postboard/db"
	"postboard/models"
)

func registerMedia(api fiber.Router, store db.MediaStore) {
	api.Get("/media", func(c *fiber.Ctx) error {
		media, err := store.ListMedia(c.UserContext(), models.ID(c.Query("post_id")))
		if err != nil {
			return respondError(c, err, "", "Error fetching media")
		}
		return c.JSON(media)
	})

	api.Post("/media", func(c *fiber.Ctx) error {
		var media models.Media
		if err := json.Unmarshal(c.Body(), &media); err != nil {
			return badRequest(c, "Invalid media record")
		}
		created, err := store.CreateMedia(c.UserContext(), media)
		if err != nil {
			return respondError(c, err, "", "Error creating media")
		}
		return c.JSON(created)
	})

	api.Delete("/media", func(c *fiber.Ctx) error {
		id := c.Query("id")
		if id == "" {
			return badRequest(c, "Media ID is required")
		}
		if err := store.DeleteMedia(c.UserContext(), id); err != nil {
			return respondError(c, err, "Media not found", "Error deleting media")
		}
		return c.JSON(models.MessageResponse{Message: "Media deleted successfully"})
	})
}

func registerProfiles(api fiber.Router, store db.ProfileStore) {
	api.Get("/profiles", func(c *fiber.Ctx) error {
		profiles, err := store.ListProfiles(c.UserContext(), db.ProfileFilter{
			ID:       c.Query("id"),
			Username: c.Query("username"),
		})
		if err != nil {
			return respondError(c, err, "", "Error fetching profiles")
		}
		return c.JSON(profiles)
	})

	api.Post("/profiles", func(c *fiber.Ctx) error {
		var profile models.Profile
		if err := json.Unmarshal(c.Body(), &profile); err != nil {
			return badRequest(c, "Invalid profile")
		}
		created, err := store.CreateProfile(c.UserContext(), profile)
		if err != nil {
			return respondError(c, err, "", "Error creating profile")
		}
		return c.JSON(created)
	})

	api.Put("/profiles", func(c *fiber.Ctx) error {
		var profile models.Profile
		if err := json.Unmarshal(c.Body(), &profile); err != nil {
			return badRequest(c, "Invalid profile")
		}
		if profile.ID == "" {
			return badRequest(c, "Profile ID is required")
		}
		updated, err := store.UpdateProfile(c.UserContext(), profile)
		if err != nil {
			return respondError(c, err, "Profile not found", "Error updating profile")
		}
		return c.JSON(updated)
	})
}

type setActiveRequest struct {
	ID string `json:"id"`
}

func registerAccounts(api fiber.Router, store *accounts.Store) {
	api.Get("/accounts", func(c *fiber.Ctx) error {
		return c.JSON(store.List())
	})

	api.Post("/accounts", func(c *fiber.Ctx) error {
		var account models.Account
		if err := json.Unmarshal(c.Body(), &account); err != nil {
			return badRequest(c, "Invalid account")
		}
		added, err := store.Add(c.UserContext(), account)
		if err != nil {
			return respondError(c, err, "", "Error adding account")
		}
		return c.JSON(added)
	})

	api.Get("/accounts/active", func(c *fiber.Ctx) error {
		active, ok := store.Active()
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "No active account"})
		}
		return c.JSON(active)
	})

	api.Put("/accounts/active", func(c *fiber.Ctx) error {
		var req setActiveRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil || req.ID == "" {
			return badRequest(c, "Account ID is required")
		}
		if err := store.SetActive(c.UserContext(), req.ID); err != nil {
			return respondError(c, err, "Account not found", "Error switching account")
		}
		active, _ := store.Active()
		return c.JSON(active)
	})

	api.Post("/accounts/reset", func(c *fiber.Ctx) error {
		if err := store.Reset(c.UserContext()); err != nil {
			return respondError(c, err, "", "Error resetting accounts")
		}
		return c.JSON(store.List())
	})

	api.Put("/accounts/:id", func(c *fiber.Ctx) error {
		var account models.Account
		if err := json.Unmarshal(c.Body(), &account); err != nil {
			return badRequest(c, "Invalid account")
		}
		account.ID = c.Params("id")
		if err := store.Update(c.UserContext(), account); err != nil {
			return respondError(c, err, "Account not found", "Error updating account")
		}
		return c.JSON(account)
	})

	api.Delete("/accounts/:id", func(c *fiber.Ctx) error {
		if err := store.Delete(c.UserContext(), c.Params("id")); err != nil {
			return respondError(c, err, "Account not found", "Error deleting account")
		}
		return c.JSON(models.MessageResponse{Message: "Account deleted successfully"})
	})
}
