package services

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/heritageplates/backend/pkg/apperr"
)

type NotificationType string

const (
	NotifyOrderStatus       NotificationType = "order_status"
	NotifyCulturalDiscovery NotificationType = "cultural_discovery"
	NotifyNewRestaurant     NotificationType = "new_restaurant"
	NotifyFeaturedDish      NotificationType = "featured_dish"
	NotifyPromotional       NotificationType = "promotional"
	NotifyLoyalty           NotificationType = "loyalty"
	NotifySeasonal          NotificationType = "seasonal"
)

var NotificationTypes = []NotificationType{
	NotifyOrderStatus, NotifyCulturalDiscovery, NotifyNewRestaurant, NotifyFeaturedDish,
	NotifyPromotional, NotifyLoyalty, NotifySeasonal,
}

// requiredData lists the data keys each type needs to build its target.
var requiredData = map[NotificationType][]string{
	NotifyOrderStatus:       {"orderId"},
	NotifyCulturalDiscovery: {"countryCode"},
	NotifyNewRestaurant:     {"restaurantId"},
	NotifyFeaturedDish:      {"restaurantId", "dishId"},
	NotifyPromotional:       nil,
	NotifyLoyalty:           nil,
	NotifySeasonal:          {"campaign"},
}

// preferenceColumn maps a type to its opt-out column; order_status has none.
var preferenceColumn = map[NotificationType]string{
	NotifyCulturalDiscovery: "cultural_discovery",
	NotifyNewRestaurant:     "new_restaurant",
	NotifyFeaturedDish:      "featured_dish",
	NotifyPromotional:       "promotional",
	NotifyLoyalty:           "loyalty",
	NotifySeasonal:          "seasonal",
}

func (t NotificationType) Valid() bool {
	_, ok := requiredData[t]
	return ok
}

// Payload is what the mobile client receives, in push data and over the websocket.
type Payload struct {
	Type  NotificationType  `json:"type" binding:"required"`
	Title string            `json:"title" binding:"required"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

func (p Payload) Validate() error {
	if !p.Type.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown notification type %q", p.Type))
	}
	if strings.TrimSpace(p.Title) == "" {
		return apperr.Validation("title is required")
	}
	for _, k := range requiredData[p.Type] {
		if strings.TrimSpace(p.Data[k]) == "" {
			return apperr.Validation(fmt.Sprintf("%s notification requires data.%s", p.Type, k))
		}
	}
	return nil
}

// Target is the client navigation route for the payload.
func (p Payload) Target() string {
	seg := func(k string) string { return url.PathEscape(p.Data[k]) }
	switch p.Type {
	case NotifyOrderStatus:
		return "/orders/" + seg("orderId")
	case NotifyCulturalDiscovery:
		return "/discover/countries/" + strings.ToUpper(seg("countryCode"))
	case NotifyNewRestaurant:
		return "/restaurants/" + seg("restaurantId")
	case NotifyFeaturedDish:
		return "/restaurants/" + seg("restaurantId") + "/dishes/" + seg("dishId")
	case NotifyPromotional:
		if p.Data["promotionId"] != "" {
			return "/promotions/" + seg("promotionId")
		}
		return "/promotions"
	case NotifyLoyalty:
		return "/profile/loyalty"
	case NotifySeasonal:
		return "/discover/seasonal/" + seg("campaign")
	}
	return "/"
}

// PushData is the data object sent with the push: the payload data plus type and target.
func (p Payload) PushData() map[string]string {
	out := make(map[string]string, len(p.Data)+2)
	for k, v := range p.Data {
		out[k] = v
	}
	out["type"] = string(p.Type)
	out["target"] = p.Target()
	return out
}
