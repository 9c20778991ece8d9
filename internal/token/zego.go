package token

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ZEGOCLOUD/zego_server_assistant/token/go/src/token04"
)

// rtcRoomPayload is the payload for room-based token04 tokens.
type rtcRoomPayload struct {
	RoomID       string      `json:"RoomId"`
	Privilege    map[int]int `json:"Privilege"`
	StreamIDList []string    `json:"StreamIdList,omitempty"`
}

// ZegoIssuer signs ZEGOCLOUD token04 room tokens.
type ZegoIssuer struct {
	appID  uint32
	secret string
}

// NewZegoIssuer validates the app credentials. serverSecret must be 32 characters.
func NewZegoIssuer(appID uint32, serverSecret string) (*ZegoIssuer, error) {
	if appID == 0 || serverSecret == "" {
		return nil, fmt.Errorf("zego: app_id and server_secret required")
	}
	if len(serverSecret) != 32 {
		return nil, fmt.Errorf("zego: server_secret must be 32 characters")
	}
	return &ZegoIssuer{appID: appID, secret: serverSecret}, nil
}

// Issue generates a token for subjectID in channel. The SDK stamps its own issue time;
// now only fixes the expiry reported to the caller.
func (z *ZegoIssuer) Issue(channel, subjectID string, role Role, now time.Time) (Token, error) {
	privilege := map[int]int{
		token04.PrivilegeKeyLogin:   token04.PrivilegeEnable,
		token04.PrivilegeKeyPublish: token04.PrivilegeDisable,
	}
	if role.CanPublish() {
		privilege[token04.PrivilegeKeyPublish] = token04.PrivilegeEnable
	}
	payload, err := json.Marshal(rtcRoomPayload{RoomID: channel, Privilege: privilege})
	if err != nil {
		return Token{}, fmt.Errorf("zego: marshal payload: %w", err)
	}
	value, err := token04.GenerateToken04(z.appID, subjectID, z.secret, int64(Validity/time.Second), string(payload))
	if err != nil {
		return Token{}, fmt.Errorf("zego: generate token: %w", err)
	}
	return newToken(strconv.FormatUint(uint64(z.appID), 10), value, channel, subjectID, role, now), nil
}
