package service

import (
	"fmt"
	"net/url"
	"strings"

	"bulk-sender/internal/config"
)

// NumberCheck is the result of evaluating a recipient's numero.
type NumberCheck struct {
	Valid  bool
	Phone  string // destination passed to the deep link
	Reason string
}

// EvaluateNumero checks that numero is non-empty and all digits, and, when
// the phone config fixes a digit count, that it has exactly that many.
func EvaluateNumero(numero string, phone config.PhoneConfig) NumberCheck {
	if numero == "" {
		return NumberCheck{Reason: "numero vacío"}
	}

	for _, r := range numero {
		if r < '0' || r > '9' {
			return NumberCheck{Reason: "contiene caracteres no numéricos"}
		}
	}

	if phone.Digits > 0 && len(numero) != phone.Digits {
		return NumberCheck{Reason: fmt.Sprintf("se esperaban %d dígitos, tiene %d", phone.Digits, len(numero))}
	}

	return NumberCheck{
		Valid: true,
		Phone: phone.Prefix + numero,
	}
}

// BuildDeepLink returns the per-recipient chat URL carrying the destination
// and the pre-filled message. Spaces are encoded as %20.
func BuildDeepLink(sendURL, phone, message string) string {
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return sendURL + "?phone=" + url.QueryEscape(phone) + "&text=" + text
}
