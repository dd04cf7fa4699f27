package web

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/SatoshiDNC/nostrmarket/internal/core/application"
	"github.com/SatoshiDNC/nostrmarket/internal/core/domain"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"
)

type orderResponse struct {
	*domain.PaymentRequest
	QR string `json:"qr,omitempty"`
}

// createOrderHandler turns a buyer-submitted order into a payment
// request. Rejections map to 409 (duplicate) and 400 (invalid item),
// configuration faults to 500.
func (s *service) createOrderHandler(c *gin.Context) {
	userID := c.Query("usr")
	if len(userID) <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing usr parameter"})
		return
	}

	var data domain.PartialOrder
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	paymentRequest, err := s.appSvc.CreateOrder(c.Request.Context(), userID, data)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrOrderAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, application.ErrProductNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.WithError(err).Error("failed to create order")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create order"})
		}
		return
	}

	c.JSON(http.StatusCreated, orderResponse{
		PaymentRequest: paymentRequest,
		QR:             invoiceQR(paymentRequest),
	})
}

// invoiceQR renders the Lightning payment link as a png data uri, or
// empty if encoding fails.
func invoiceQR(paymentRequest *domain.PaymentRequest) string {
	if len(paymentRequest.PaymentOptions) <= 0 {
		return ""
	}
	png, err := qrcode.Encode(paymentRequest.PaymentOptions[0].Link, qrcode.Medium, 256)
	if err != nil {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

type paymentWebhookPayload struct {
	PaymentHash string `json:"payment_hash"`
	Extra       struct {
		Tag            string `json:"tag"`
		OrderID        string `json:"order_id"`
		MerchantPubkey string `json:"merchant_pubkey"`
	} `json:"extra"`
}

// paymentWebhookHandler receives invoice-settled callbacks from the
// payment service. It always answers 2xx: the payment is settled and
// notification failures must stay invisible to the payment pipeline.
func (s *service) paymentWebhookHandler(c *gin.Context) {
	var payload paymentWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.WithError(err).Warn("discarding malformed payment webhook")
		c.Status(http.StatusNoContent)
		return
	}
	if payload.Extra.Tag != "nostrmarket" || len(payload.Extra.OrderID) <= 0 {
		c.Status(http.StatusNoContent)
		return
	}

	s.appSvc.HandleOrderPaid(
		c.Request.Context(), payload.Extra.OrderID, payload.Extra.MerchantPubkey,
	)
	c.Status(http.StatusNoContent)
}

type createMerchantPayload struct {
	UserID     string `json:"user_id" binding:"required"`
	PrivateKey string `json:"private_key"`
}

func (s *service) createMerchantHandler(c *gin.Context) {
	var payload createMerchantPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	merchant, err := s.appSvc.CreateMerchant(
		c.Request.Context(), payload.UserID, payload.PrivateKey,
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user_id":    merchant.UserID,
		"public_key": merchant.PublicKey,
	})
}

func (s *service) upsertStallHandler(c *gin.Context) {
	var stall domain.Stall
	if err := c.ShouldBindJSON(&stall); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	stall.ID = c.Param("id")
	stall.WalletID = c.Query("wallet")

	event, err := s.appSvc.UpsertStall(c.Request.Context(), c.Query("usr"), stall)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, event)
}

func (s *service) deleteStallHandler(c *gin.Context) {
	event, err := s.appSvc.DeleteStall(c.Request.Context(), c.Query("usr"), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, event)
}

func (s *service) upsertProductHandler(c *gin.Context) {
	var product domain.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	product.ID = c.Param("id")

	event, err := s.appSvc.UpsertProduct(c.Request.Context(), c.Query("usr"), product)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, event)
}

func (s *service) deleteProductHandler(c *gin.Context) {
	event, err := s.appSvc.DeleteProduct(c.Request.Context(), c.Query("usr"), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, event)
}

// indexViewHandler serves the merchant dashboard.
func (s *service) indexViewHandler(c *gin.Context) {
	orders, err := s.appSvc.ListOrders(c.Request.Context())
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Orders": orders,
	})
}
