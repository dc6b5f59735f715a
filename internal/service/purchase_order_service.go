package service

import (
	"context"

	"procurement/internal/client"
	"procurement/internal/model"
)

type PurchaseOrderService interface {
	List(ctx context.Context) ([]model.PurchaseOrder, error)
	Get(ctx context.Context, id string) (*model.PurchaseOrder, error)
}

type purchaseOrderService struct {
	api *client.Client
}

func NewPurchaseOrderService(api *client.Client) PurchaseOrderService {
	return &purchaseOrderService{api: api}
}

func (s *purchaseOrderService) List(ctx context.Context) ([]model.PurchaseOrder, error) {
	sess, err := currentSession(ctx)
	if err != nil {
		return nil, err
	}
	return s.api.WithToken(sess.AccessToken).ListPurchaseOrders(ctx)
}

func (s *purchaseOrderService) Get(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	sess, err := currentSession(ctx)
	if err != nil {
		return nil, err
	}
	return s.api.WithToken(sess.AccessToken).GetPurchaseOrder(ctx, id)
}
