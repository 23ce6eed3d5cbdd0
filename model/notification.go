package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// NotificationMetadata 通知附加信息；未知字段保存在 Extra 中并在 JSON 里平铺
type NotificationMetadata struct {
	TargetPath          string
	TrackID             string
	ModerationRequestID string
	ReviewID            string
	OrderID             string
	Note                string
	Extra               map[string]any
}

func (m NotificationMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+6)
	for k, v := range m.Extra {
		out[k] = v
	}
	put := func(key, val string) {
		if val != "" {
			out[key] = val
		}
	}
	put("targetPath", m.TargetPath)
	put("trackId", m.TrackID)
	put("moderationRequestId", m.ModerationRequestID)
	put("reviewId", m.ReviewID)
	put("orderId", m.OrderID)
	put("note", m.Note)
	return json.Marshal(out)
}

func (m *NotificationMetadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = NotificationMetadata{}
	known := map[string]*string{
		"targetPath":          &m.TargetPath,
		"trackId":             &m.TrackID,
		"moderationRequestId": &m.ModerationRequestID,
		"reviewId":            &m.ReviewID,
		"orderId":             &m.OrderID,
		"note":                &m.Note,
	}
	for k, v := range raw {
		if dst, ok := known[k]; ok {
			// 非字符串值不会丢，落到 Extra
			if err := json.Unmarshal(v, dst); err == nil {
				continue
			}
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		if m.Extra == nil {
			m.Extra = make(map[string]any)
		}
		m.Extra[k] = val
	}
	return nil
}

// Notification is a persisted message for one user.
type Notification struct {
	Base
	UserID    string                                   `json:"-" gorm:"size:36;index;not null"`
	Message   string                                   `json:"message" gorm:"size:500;not null"`
	Metadata  datatypes.JSONType[NotificationMetadata] `json:"metadata"`
	IsRead    bool                                     `json:"isRead" gorm:"index;not null;default:false"`
	CreatedAt time.Time                                `json:"createdAt" gorm:"index"`
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}
