package response

import "github.com/shopvoice/shopvoice/internal/apperr"

// apologyFor renders a business failure as a user-friendly sentence in
// lang, keyed by [apperr.Kind] rather than the raw error message — the
// propagation policy forbids leaking internal error text to the client.
// Falls back to a generic apology for kinds with no specific phrasing.
func apologyFor(lang string, err *apperr.Error) string {
	if err == nil {
		return fallbackFor(lang)
	}
	if lang == "hi" {
		switch err.Kind {
		case apperr.NotFound:
			return "Maaf kijiye, woh nahi mila."
		case apperr.Validation:
			return "Maaf kijiye, kuch jaankari missing hai."
		case apperr.Conflict:
			return "Yeh pehle se ho chuka hai."
		case apperr.BusinessLogic:
			return "Yeh abhi possible nahi hai."
		case apperr.ExternalService, apperr.Database:
			return "Thodi dikkat aa rahi hai, phir se try karein."
		default:
			return fallbackFor(lang)
		}
	}
	switch err.Kind {
	case apperr.NotFound:
		return "Sorry, I couldn't find that."
	case apperr.Validation:
		return "Sorry, something's missing there."
	case apperr.Conflict:
		return "That's already been done."
	case apperr.BusinessLogic:
		return "That's not possible right now."
	case apperr.ExternalService, apperr.Database:
		return "Having some trouble, please try again."
	default:
		return fallbackFor(lang)
	}
}

// fallbackFor is the last-resort apology when no kind-specific phrasing
// applies, language-matched to the fixed fallbackUtterance.
func fallbackFor(lang string) string {
	if lang == "hi" {
		return fallbackUtterance
	}
	return "Okay."
}
