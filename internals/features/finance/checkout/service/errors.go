package service

import (
	"errors"

	"courseku_backend/internals/features/finance/gateway"
	txService "courseku_backend/internals/features/finance/transactions/service"
)

// Sentinel lapisan bawah di-alias supaya errors.Is cukup memakai paket ini.
var (
	ErrGatewayUnavailable = gateway.ErrGatewayUnavailable
	ErrGatewayRejected    = gateway.ErrGatewayRejected
	ErrInvalidTransition  = txService.ErrInvalidTransition
)

var (
	ErrValidation       = errors.New("data checkout tidak valid")
	ErrNotFound         = errors.New("reference transaksi tidak ditemukan")
	ErrForbidden        = errors.New("transaksi bukan milik user ini")
	ErrTooManyAttempts  = errors.New("verifikasi terlalu sering, coba lagi sebentar")
	ErrAmountMismatch   = errors.New("nominal dari gateway lebih kecil dari tagihan")
	ErrInvalidSignature = errors.New("signature notifikasi tidak valid")

	// ErrPaymentFailed: gateway memastikan pembayaran gagal (lihat VerifyResult.Err).
	ErrPaymentFailed = errors.New("pembayaran gagal")

	// ErrConsistencyRepairNeeded tidak pernah dikembalikan ke caller,
	// hanya dicatat di log saat repair path membuat enrollment yang hilang.
	ErrConsistencyRepairNeeded = errors.New("transaksi completed tanpa enrollment")
)
