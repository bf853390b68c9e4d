package access

import (
	"context"
	"strconv"

	"CarePortal/global/config"
	"CarePortal/tools/errs"
	"CarePortal/tools/security"

	"github.com/go-resty/resty/v2"
)

// Roles the portal routes to a chat surface. Anything else never opens
// a session.
const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

const fallbackReason = "this consultation is not available"

type validateResponse struct {
	Valid  bool   `json:"valid"`
	RoomID any    `json:"room_id"`
	Error  string `json:"error"`
}

// Validator gates room entry behind one REST check. No socket is opened
// until the slot validates.
type Validator struct {
	rest *resty.Client
}

func NewValidator(cfg config.AppConfig, token string) *Validator {
	rest := resty.New().
		SetBaseURL(cfg.APIBase).
		SetTimeout(cfg.RequestTimeout).
		SetAuthToken(token)
	return &Validator{rest: rest}
}

// Validate issues one REST call for the slot. It returns the room id on
// success; on valid=false or any transport failure the caller gets a
// ValidationDenied carrying a user-facing reason.
func (v *Validator) Validate(ctx context.Context, slotID string) (string, error) {
	var out validateResponse
	resp, err := v.rest.R().
		SetContext(ctx).
		SetQueryParam("slot_id", slotID).
		SetResult(&out).
		Get("/api/chat/validate")
	if err != nil {
		return "", errs.ErrValidationDenied.WrapMsg(fallbackReason)
	}
	if resp.IsError() || !out.Valid {
		reason := out.Error
		if reason == "" {
			reason = fallbackReason
		}
		return "", errs.ErrValidationDenied.WrapMsg(reason)
	}
	roomID := roomIDString(out.RoomID)
	if roomID == "" {
		return "", errs.ErrValidationDenied.WrapMsg(fallbackReason)
	}
	return roomID, nil
}

// Route maps a role to the chat surface for a room. Patient and doctor
// land on distinct routes for the same room id.
func Route(role, roomID string) (string, error) {
	switch role {
	case RolePatient:
		return "/patient/chat/" + roomID, nil
	case RoleDoctor:
		return "/doctor/chat/" + roomID, nil
	}
	return "", errs.ErrUnknownRole.WrapMsg("role " + strconv.Quote(role))
}

// Authorize runs the whole gate: validate the slot, read the role from
// the bearer token, and produce the navigation target. The token is
// passed in explicitly; nothing is read from ambient state.
func (v *Validator) Authorize(ctx context.Context, slotID, token string) (target, roomID string, err error) {
	roomID, err = v.Validate(ctx, slotID)
	if err != nil {
		return "", "", err
	}
	id, err := security.IdentityFromToken(token)
	if err != nil {
		return "", "", errs.ErrUnknownRole.WrapMsg(err.Error())
	}
	target, err = Route(id.Role, roomID)
	if err != nil {
		return "", "", err
	}
	return target, roomID, nil
}

// roomIDString tolerates both string and numeric room ids on the wire.
func roomIDString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatInt(int64(t), 10)
	case int:
		return strconv.Itoa(t)
	}
	return ""
}
