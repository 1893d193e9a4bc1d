package domain

import "errors"

var (
	ErrCartNotFound      = errors.New("carrinho não encontrado")
	ErrEmptyCart         = errors.New("carrinho vazio")
	ErrVariantNotFound   = errors.New("variação não encontrada")
	ErrVariantInactive   = errors.New("variação inativa")
	ErrProductNotFound   = errors.New("produto não encontrado ou inativo")
	ErrInsufficientStock = errors.New("estoque insuficiente")
	ErrCouponInvalid     = errors.New("cupom inválido ou expirado")
	ErrShippingRequired  = errors.New("endereço e método de frete são obrigatórios para produtos físicos")
	ErrShippingNotFound  = errors.New("método de frete não encontrado")
	ErrOrderNotFound     = errors.New("pedido não encontrado")
	ErrPaymentNotFound   = errors.New("pagamento não encontrado")
	ErrOrderNotPayable   = errors.New("pedido não está aguardando pagamento")
	ErrInvalidTransition = errors.New("transição de status inválida")
	ErrPlanNotFound      = errors.New("plano de assinatura não encontrado ou inativo")
	ErrSubscriptionNotFound = errors.New("assinatura não encontrada")
	ErrSubscriptionExists   = errors.New("usuário já possui uma assinatura ativa")
	ErrUserNotFound      = errors.New("usuário não encontrado")
)
