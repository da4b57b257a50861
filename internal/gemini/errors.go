package gemini

import (
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"

	"github.com/oukeidos/tdocs/internal/apperrors"
)

// classifyGeminiError maps API failures to error kinds. Raw provider messages
// stay in the cause and never reach the safe message.
func classifyGeminiError(err error) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("gemini generate content failed: %w", err)

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return apperrors.New(apperrors.KindTransient, "Gemini request failed due to a temporary network/runtime error.", wrapped)
	}
	switch code := gerr.Code; {
	case code == 400:
		return apperrors.New(apperrors.KindBadRequest, "Gemini request rejected (400).", wrapped)
	case code == 404:
		return apperrors.New(apperrors.KindBadRequest, "Gemini model not found or no access (404).", wrapped)
	case code == 401 || code == 403:
		return apperrors.New(apperrors.KindAuth, fmt.Sprintf("Gemini authentication/authorization failed (%d).", code), wrapped)
	case code == 429:
		return apperrors.New(apperrors.KindRateLimit, "Gemini rate limit exceeded (429).", wrapped)
	case code >= 500:
		return apperrors.New(apperrors.KindTransient, fmt.Sprintf("Gemini service temporary error (%d).", code), wrapped)
	default:
		return apperrors.New(apperrors.KindBadRequest, fmt.Sprintf("Gemini API error (%d).", code), wrapped)
	}
}
