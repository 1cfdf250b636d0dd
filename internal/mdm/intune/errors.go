package intune

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Remediation hints returned with Graph failures.
const (
	HintPermissions = "Check Azure app registration permissions, admin consent, and that your account has access to Intune. " +
		"Also verify the tenant and app registration match your environment."
	HintGeneric = "Check Azure app registration permissions and admin consent for DeviceManagementManagedDevices.Read.All"
)

// Application roles that grant read access to managed devices.
var deviceReadRoles = []string{
	"DeviceManagementManagedDevices.Read.All",
	"DeviceManagementManagedDevices.ReadWrite.All",
}

// GraphError carries a Graph or token endpoint failure together with the
// vendor payload, so callers can diagnose consent problems.
type GraphError struct {
	StatusCode int
	Code       string
	Message    string
	Raw        json.RawMessage
	Hint       string
}

func (e *GraphError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("graph error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("graph error: %s", e.Message)
}

// graphErrorBody is the Graph error envelope.
type graphErrorBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// tokenRoles reads the roles claim of an app token without verifying it.
// The token was just issued to us; the claim is used for diagnostics only.
func tokenRoles(accessToken string) ([]string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	raw, ok := claims["roles"].([]any)
	if !ok {
		return nil, nil
	}
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles, nil
}

// roleHint names the missing device role, or returns "" when the token
// carries one or cannot be read.
func roleHint(accessToken string) string {
	roles, err := tokenRoles(accessToken)
	if err != nil {
		return ""
	}
	for _, want := range deviceReadRoles {
		if slices.Contains(roles, want) {
			return ""
		}
	}
	return fmt.Sprintf("The app token has no %s application role (roles: %v). Grant it and re-run admin consent.",
		deviceReadRoles[0], roles)
}
