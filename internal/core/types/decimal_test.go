package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineTotal(t *testing.T) {
	assert.True(t, MustMoney("20.00").Equal(LineTotal(2, MustMoney("10.00"))))
	assert.Nil(t, LineTotalPtr(3, nil))

	price := MustMoney("0.10")
	got := LineTotalPtr(3, &price)
	if assert.NotNil(t, got) {
		assert.Equal(t, "0.3", got.String())
	}
}

func TestPercent(t *testing.T) {
	assert.True(t, MustMoney("7").Equal(Percent(MustMoney("35.00"), MustMoney("20"))))
	assert.True(t, Zero().Equal(Percent(MustMoney("35.00"), Zero())))
	assert.Equal(t, "0.33", Round2(MustMoney("1").Div(MustMoney("3"))).String())
}
