// services/order_transitions.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/heritageplates/backend/entity"
	"github.com/heritageplates/backend/pkg/apperr"
)

// nextStatus is the forward path an owner walks an order along.
var nextStatus = map[string]string{
	entity.StatusPending:    entity.StatusConfirmed,
	entity.StatusConfirmed:  entity.StatusPreparing,
	entity.StatusPreparing:  entity.StatusDelivering,
	entity.StatusDelivering: entity.StatusDelivered,
}

var statusMessages = map[string]string{
	entity.StatusPending:    "We received your order",
	entity.StatusConfirmed:  "The restaurant confirmed your order",
	entity.StatusPreparing:  "Your food is being prepared",
	entity.StatusDelivering: "Your order is on the way",
	entity.StatusDelivered:  "Your order was delivered. Enjoy!",
	entity.StatusCancelled:  "Your order was cancelled",
}

// CanTransition reports whether from → to is allowed for a restaurant owner (staff)
// or for the customer who placed the order.
func CanTransition(from, to string, staff bool) bool {
	if to == entity.StatusCancelled {
		if staff {
			return from == entity.StatusPending || from == entity.StatusConfirmed
		}
		return from == entity.StatusPending
	}
	return staff && nextStatus[from] == to
}

// Transition moves an order with a guarded update; Delivered credits loyalty points.
func (s *OrderService) Transition(ctx context.Context, actor *entity.User, orderID uint, to string) (*entity.Order, error) {
	if _, known := statusMessages[to]; !known || to == entity.StatusPending {
		return nil, apperr.Validation("unknown target status")
	}
	o, err := s.Repo.GetOrder(s.DB, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("order not found")
	}
	if err != nil {
		return nil, err
	}

	staff := actor.Role == entity.RoleAdmin
	if !staff {
		owned, err := s.RestRepo.IsOwnedBy(o.RestaurantID, actor.ID)
		if err != nil {
			return nil, err
		}
		staff = owned
	}
	if !staff && o.UserID != actor.ID {
		return nil, apperr.NotFound("order not found")
	}

	from := o.OrderStatus.StatusName
	if !CanTransition(from, to, staff) {
		if !staff && to != entity.StatusCancelled {
			return nil, apperr.Forbidden("only the restaurant can update this order")
		}
		return nil, apperr.Conflict(fmt.Sprintf("cannot move order from %s to %s", from, to))
	}
	fromID, err := s.statusID(from)
	if err != nil {
		return nil, err
	}
	toID, err := s.statusID(to)
	if err != nil {
		return nil, err
	}

	var points int64
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		affected, err := s.Repo.UpdateStatusGuard(tx, o.ID, fromID, toID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return apperr.Conflict("order status changed concurrently")
		}
		if to == entity.StatusDelivered && s.LoyaltyPointUnit > 0 {
			points = o.Total / s.LoyaltyPointUnit
			if points > 0 {
				return s.UserRepo.AddLoyaltyPoints(tx, o.UserID, points)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.OrderStatusID = toID
	o.OrderStatus = entity.OrderStatus{StatusName: to}
	o.OrderStatus.ID = toID
	s.Log.WithFields(logrus.Fields{"order_code": o.OrderCode, "from": from, "to": to, "by": actor.ID}).Info("order status changed")

	s.notifyStatus(ctx, o, to)
	if points > 0 && s.Notifier != nil {
		p := Payload{
			Type:  NotifyLoyalty,
			Title: fmt.Sprintf("You earned %d points", points),
			Body:  "Thanks for ordering " + o.OrderCode,
			Data:  map[string]string{"points": strconv.FormatInt(points, 10), "orderId": strconv.FormatUint(uint64(o.ID), 10)},
		}
		if err := s.Notifier.Notify(ctx, o.UserID, p); err != nil && !errors.Is(err, ErrMuted) {
			s.Log.WithError(err).Warn("notify loyalty points")
		}
	}
	return o, nil
}

func (s *OrderService) notifyStatus(ctx context.Context, o *entity.Order, status string) {
	if s.Notifier == nil {
		return
	}
	p := Payload{
		Type:  NotifyOrderStatus,
		Title: statusMessages[status],
		Body:  "Order " + o.OrderCode,
		Data: map[string]string{
			"orderId":   strconv.FormatUint(uint64(o.ID), 10),
			"orderCode": o.OrderCode,
			"status":    status,
		},
	}
	if err := s.Notifier.Notify(ctx, o.UserID, p); err != nil {
		s.Log.WithError(err).WithField("order_code", o.OrderCode).Warn("notify order status")
	}
}
