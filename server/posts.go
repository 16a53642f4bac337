package server

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"postboard/db"
	"postboard/models"
)

func registerPosts(api fiber.Router, store db.PostStore) {
	api.Get("/posts", func(c *fiber.Ctx) error {
		posts, err := store.ListPosts(c.UserContext(), db.PostFilter{
			AccountID: c.Query("account"),
			Platform:  c.Query("platform"),
			Status:    c.Query("status"),
		})
		if err != nil {
			return respondError(c, err, "", "Error fetching posts")
		}
		return c.JSON(posts)
	})

	api.Post("/posts/order", func(c *fiber.Ctx) error {
		ids, err := parseOrderedIDs(c.Body())
		if err != nil {
			if errors.Is(err, db.ErrInvalid) {
				return badRequest(c, err.Error())
			}
			log.WithFields(log.Fields{"error": err}).Error("Error updating post order")
			return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "Error updating post order"})
		}

		log.WithFields(log.Fields{"ids": ids}).Debug("Received ordered IDs")
		message, err := store.SubmitOrder(c.UserContext(), ids)
		if err != nil {
			return respondError(c, err, "", "Error updating post order")
		}
		return c.JSON(models.MessageResponse{Message: message})
	})

	api.Get("/posts/:id", func(c *fiber.Ctx) error {
		post, err := store.GetPost(c.UserContext(), models.ID(c.Params("id")))
		if err != nil {
			return respondError(c, err, "Post not found", "Error fetching post")
		}
		return c.JSON(post)
	})

	api.Post("/posts", func(c *fiber.Ctx) error {
		var post models.Post
		if err := json.Unmarshal(c.Body(), &post); err != nil {
			return badRequest(c, "Invalid post")
		}
		created, err := store.CreatePost(c.UserContext(), post)
		if err != nil {
			return respondError(c, err, "", "Error creating post")
		}
		return c.JSON(created)
	})

	api.Put("/posts", func(c *fiber.Ctx) error {
		var post models.Post
		if err := json.Unmarshal(c.Body(), &post); err != nil {
			return badRequest(c, "Invalid post")
		}
		if post.ID == "" {
			return badRequest(c, "Post ID is required")
		}
		updated, err := store.UpdatePost(c.UserContext(), post)
		if err != nil {
			return respondError(c, err, "Post not found", "Error updating post")
		}
		return c.JSON(updated)
	})

	api.Delete("/posts/:id", func(c *fiber.Ctx) error {
		if err := store.DeletePost(c.UserContext(), models.ID(c.Params("id"))); err != nil {
			return respondError(c, err, "Post not found", "Error deleting post")
		}
		return c.JSON(models.MessageResponse{Message: "Post deleted successfully"})
	})
}

// parseOrderedIDs reads {"orderedIds": [...]}. Anything but an array of ids
// is a ValidationError; a body that is not JSON at all is a plain error.
func parseOrderedIDs(body []byte) ([]models.ID, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	notArray := &db.ValidationError{Message: "orderedIds must be an array"}
	field, ok := raw["orderedIds"]
	if !ok {
		return nil, notArray
	}
	var items []json.RawMessage
	if err := json.Unmarshal(field, &items); err != nil || items == nil {
		return nil, notArray
	}

	ids := make([]models.ID, 0, len(items))
	for _, item := range items {
		var id models.ID
		if err := json.Unmarshal(item, &id); err != nil {
			return nil, &db.ValidationError{Message: "orderedIds must contain ids"}
		}
		ids = append(ids, id)
	}
	return ids, nil
}
