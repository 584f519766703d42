package handlers

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

const (
	headerTotalCount = "X-Total-Count"
	headerLink       = "Link"
)

// parsePageRequest reads zero-based page, size and sort=field,dir.
func parsePageRequest(c *fiber.Ctx) (repository.PageRequest, error) {
	var req repository.PageRequest
	details := map[string]any{}

	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			details["page"] = "must be a non-negative integer"
		}
		req.Page = n
	}
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			details["size"] = "must be a positive integer"
		}
		req.Size = n
	}
	field, desc, err := repository.ParseSort(c.Query("sort"))
	if err != nil {
		details["sort"] = err.Error()
	}
	req.Sort, req.Desc = field, desc

	if len(details) == 0 {
		req = req.Normalize()
		if req.Page > math.MaxInt/req.Size {
			details["page"] = "out of range"
		}
	}
	if len(details) > 0 {
		return repository.PageRequest{}, apperrors.NewValidationError("invalid paging parameters", details)
	}
	return req, nil
}

// setPaginationHeaders writes X-Total-Count and an RFC 5988 Link header with
// next, prev, last and first relations.
func setPaginationHeaders[T any](c *fiber.Ctx, basePath string, page repository.Page[T]) {
	c.Set(headerTotalCount, strconv.FormatInt(page.Total, 10))

	links := make([]string, 0, 4)
	if page.Number+1 < page.TotalPages() {
		links = append(links, pageLink(basePath, page.Number+1, page.Size, "next"))
	}
	if page.Number > 0 {
		links = append(links, pageLink(basePath, page.Number-1, page.Size, "prev"))
	}
	last := 0
	if page.TotalPages() > 0 {
		last = page.TotalPages() - 1
	}
	links = append(links,
		pageLink(basePath, last, page.Size, "last"),
		pageLink(basePath, 0, page.Size, "first"))
	c.Set(headerLink, strings.Join(links, ","))
}

func pageLink(basePath string, number, size int, rel string) string {
	return fmt.Sprintf(`<%s?page=%d&size=%d>; rel="%s"`, basePath, number, size, rel)
}
