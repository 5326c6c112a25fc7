package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_KEY_SECRET", "secret")
	razorpayService := NewRazorpayService()

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("order_abc|pay_xyz"))
	valid := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, razorpayService.VerifySignature("order_abc", "pay_xyz", valid))

	// Any drift in the signed material or the signature itself fails.
	assert.False(t, razorpayService.VerifySignature("order_abc", "pay_other", valid))
	assert.False(t, razorpayService.VerifySignature("order_other", "pay_xyz", valid))
	assert.False(t, razorpayService.VerifySignature("order_abc", "pay_xyz", "deadbeef"))
	assert.False(t, razorpayService.VerifySignature("order_abc", "pay_xyz", ""))
}

func TestVerifySignature_Unconfigured(t *testing.T) {
	t.Setenv("RAZORPAY_KEY_ID", "")
	t.Setenv("RAZORPAY_KEY_SECRET", "")
	razorpayService := NewRazorpayService()

	assert.False(t, razorpayService.Configured())
	assert.False(t, razorpayService.VerifySignature("order_abc", "pay_xyz", "anything"))
}
