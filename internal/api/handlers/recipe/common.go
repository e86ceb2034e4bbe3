package recipe

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/pkg/common"
)

const anonymousUser = "anonymous"

// userID extracts the caller identity. Anonymous callers share one
// history bucket.
func userID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader("X-User-ID")); id != "" {
		return id
	}
	return anonymousUser
}

// respondError maps service errors onto HTTP responses.
func respondError(c *gin.Context, err error) {
	if common.IsValidationError(err) {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Error: err.Error(),
			Code:  common.ErrCodeInvalidRequest,
		})
		return
	}

	var custom *common.CustomError
	if errors.As(err, &custom) {
		c.JSON(custom.Status, common.ErrorResponse{
			Error:   custom.Message,
			Code:    custom.Code,
			Details: detailOf(custom),
			Raw:     custom.Raw,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, common.ErrorResponse{
		Error: "internal server error",
		Code:  common.ErrCodeInternalError,
	})
}

func detailOf(custom *common.CustomError) string {
	if custom.Err != nil {
		return custom.Err.Error()
	}
	return ""
}

// FlexList accepts a JSON list of strings or a single comma-separated
// string. Anything else is a validation error.
type FlexList []string

func (f *FlexList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = nil
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := common.ParseJSON(trimmed, &s); err != nil {
			return common.NewValidationError("expected a string or a list of strings")
		}
		*f = splitCommaList(s)
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var items []string
		if err := common.ParseJSON(trimmed, &items); err != nil {
			return common.NewValidationError("list elements must be strings")
		}
		*f = items
		return nil
	}
	return common.NewValidationError("expected a string or a list of strings")
}

// FlexInt accepts a JSON number or a numeric string.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	trimmed := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if trimmed == "null" || trimmed == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return common.NewValidationError("expected a number")
	}
	if v < 0 {
		v = 0
	}
	*f = FlexInt(int(v))
	return nil
}

func splitCommaList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// filterRequest is the loose search request body shared by the three
// suggestion endpoints.
type filterRequest struct {
	Ingredients    FlexList `json:"ingredients"`
	Intolerances   FlexList `json:"intolerances"`
	Diet           FlexList `json:"diet"`
	Cuisine        FlexList `json:"cuisine"`
	MealType       FlexList `json:"mealType"`
	MaxCookingTime FlexInt  `json:"maxCookingTime"`
}

func (r filterRequest) toFilter() recipe.QueryFilter {
	return recipe.QueryFilter{
		Ingredients:    r.Ingredients,
		Intolerances:   r.Intolerances,
		Diet:           r.Diet,
		Cuisine:        r.Cuisine,
		MealType:       r.MealType,
		MaxCookingTime: int(r.MaxCookingTime),
	}
}

// parseFilter decodes and validates the request body before anything
// touches a provider.
func parseFilter(c *gin.Context) (recipe.QueryFilter, error) {
	var req filterRequest
	if err := common.DecodeJSON(c.Request.Body, &req); err != nil {
		if common.IsValidationError(err) {
			return recipe.QueryFilter{}, err
		}
		return recipe.QueryFilter{}, common.NewValidationError("request body must be a JSON object")
	}
	return req.toFilter(), nil
}
