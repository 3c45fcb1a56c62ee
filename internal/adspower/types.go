package adspower

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexString decodes JSON strings and numbers alike; the local API is not
// consistent about quoting ids and timestamps.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(b))
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// Group is an entry of /api/v1/group/list.
type Group struct {
	ID   FlexString `json:"group_id"`
	Name string     `json:"group_name"`
}

// Profile is an entry of /api/v1/user/list.
type Profile struct {
	UserID       string     `json:"user_id"`
	Name         string     `json:"name"`
	GroupID      FlexString `json:"group_id"`
	GroupName    string     `json:"group_name"`
	Remark       string     `json:"remark"`
	LastOpenTime FlexString `json:"last_open_time"`
}

type listData[T any] struct {
	List     []T `json:"list"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// CreateRequest is the body of /api/v1/user/create.
type CreateRequest struct {
	Name        string         `json:"name"`
	GroupID     string         `json:"group_id"`
	ProxyConfig map[string]any `json:"user_proxy_config"`
	OS          string         `json:"os,omitempty"`
	Browser     string         `json:"browser,omitempty"`
}

type createData struct {
	ID FlexString `json:"id"`
}

// Fingerprint is the location part of fingerprint_config.
type Fingerprint struct {
	LocationSwitch string `json:"location_switch"`
	Longitude      string `json:"longitude"`
	Latitude       string `json:"latitude"`
	Accuracy       string `json:"accuracy"`
}

// LocationFingerprint pins the profile to lat/lon with the given accuracy in
// meters. Coordinates are sent with six decimals.
func LocationFingerprint(lat, lon float64, accuracy int) Fingerprint {
	return Fingerprint{
		LocationSwitch: "0",
		Latitude:       strconv.FormatFloat(lat, 'f', 6, 64),
		Longitude:      strconv.FormatFloat(lon, 'f', 6, 64),
		Accuracy:       strconv.Itoa(accuracy),
	}
}

// NoLocationFingerprint lets the browser derive location from the proxy IP.
func NoLocationFingerprint() Fingerprint {
	return Fingerprint{LocationSwitch: "1"}
}

// UpdateRequest is the body of /api/v1/user/update. Every field is always
// sent so that a value removed from the sheet is cleared on the profile.
type UpdateRequest struct {
	UserID      string      `json:"user_id"`
	Remark      string      `json:"remark"`
	Username    string      `json:"username"`
	Password    string      `json:"password"`
	Fakey       string      `json:"fakey"`
	DomainName  string      `json:"domain_name"`
	Fingerprint Fingerprint `json:"fingerprint_config"`
}

// APIError is a response whose code is not 0. These are soft failures:
// logged by the caller and never retried.
type APIError struct {
	Endpoint string
	Code     int
	Msg      string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("adspower %s: code %d: %s", e.Endpoint, e.Code, e.Msg)
}
