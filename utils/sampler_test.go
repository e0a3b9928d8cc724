package utils

import (
	"testing"

	"go.viam.com/test"
)

func TestFixedRatioSamplerAlwaysAndNever(t *testing.T) {
	always := NewFixedRatioSampler(1)
	never := NewFixedRatioSampler(0)
	for i := 0; i < 100; i++ {
		test.That(t, always.Pulse(), test.ShouldBeTrue)
		test.That(t, never.Pulse(), test.ShouldBeFalse)
	}
}

func TestFixedRatioSamplerTracksRatio(t *testing.T) {
	s := NewFixedRatioSampler(0.25)
	fired := 0
	for i := 0; i < 1000; i++ {
		if s.Pulse() {
			fired++
		}
	}
	test.That(t, fired, test.ShouldBeBetweenOrEqual, 249, 251)
}

func TestFixedRatioSamplerRejectsBadRatio(t *testing.T) {
	test.That(t, func() { NewFixedRatioSampler(-0.1) }, test.ShouldPanic)
	test.That(t, func() { NewFixedRatioSampler(1.1) }, test.ShouldPanic)
}
