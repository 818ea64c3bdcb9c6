package widget

import (
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
)

func hiddenSoon(t *testing.T, view func() BannerView) {
	t.Helper()
	assert.Eventually(t, func() bool { return !view().Visible }, time.Second, 5*time.Millisecond)
}

func TestBanners_AutoHide(t *testing.T) {
	mock := clock.NewMock()
	b := NewBanners(mock, DefaultBannerDuration)

	b.ShowError("bad file")
	assert.Equal(t, BannerView{Text: "bad file", Visible: true}, b.Error())

	mock.Add(4999 * time.Millisecond)
	assert.True(t, b.Error().Visible, "banner should survive until 5000 ms")

	mock.Add(time.Millisecond)
	hiddenSoon(t, b.Error)
	assert.Equal(t, "bad file", b.Error().Text)
}

func TestBanners_ShowingOneHidesOther(t *testing.T) {
	b := NewBanners(clock.NewMock(), DefaultBannerDuration)

	b.ShowSuccess("uploaded")
	b.ShowError("failed")
	assert.True(t, b.Error().Visible)
	assert.False(t, b.Success().Visible)

	b.ShowSuccess("uploaded again")
	assert.False(t, b.Error().Visible)
	assert.Equal(t, BannerView{Text: "uploaded again", Visible: true}, b.Success())
}

func TestBanners_TimersIndependent(t *testing.T) {
	mock := clock.NewMock()
	b := NewBanners(mock, DefaultBannerDuration)

	b.ShowError("failed")
	mock.Add(2 * time.Second)
	b.ShowSuccess("uploaded")

	// The error timer fires at 5s and must not touch the success region.
	mock.Add(3 * time.Second)
	hiddenSoon(t, b.Error)
	assert.True(t, b.Success().Visible)

	mock.Add(2 * time.Second)
	hiddenSoon(t, b.Success)
}

func TestBanners_EarlierTimerStillFires(t *testing.T) {
	mock := clock.NewMock()
	b := NewBanners(mock, DefaultBannerDuration)

	b.ShowError("first")
	mock.Add(3 * time.Second)
	b.ShowError("second")
	assert.Equal(t, "second", b.Error().Text)

	// The hide scheduled by the first message is not cancelled.
	mock.Add(2 * time.Second)
	hiddenSoon(t, b.Error)
	assert.Equal(t, "second", b.Error().Text)
}

func TestBanners_Listener(t *testing.T) {
	b := NewBanners(clock.NewMock(), 0)

	var got []string
	b.notify = func(kind BannerKind, msg string) {
		got = append(got, string(kind)+":"+msg)
	}

	b.ShowError("e1")
	b.ShowSuccess("s1")
	assert.Equal(t, []string{"error:e1", "success:s1"}, got)
}
