package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"smc_bot/internal/models"
)

// num accepts both JSON numbers and numeric strings; ohlc frames quote
// their prices, candle history does not.
type num float64

func (n *num) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*n = num(f)
	return nil
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string { return e.Code + ": " + e.Message }

type tickFrame struct {
	Symbol string `json:"symbol"`
	Quote  num    `json:"quote"`
	Epoch  int64  `json:"epoch"`
}

type candleFrame struct {
	Epoch int64 `json:"epoch"`
	Open  num   `json:"open"`
	High  num   `json:"high"`
	Low   num   `json:"low"`
	Close num   `json:"close"`
}

type ohlcFrame struct {
	OpenTime int64  `json:"open_time"`
	Epoch    int64  `json:"epoch"`
	Open     num    `json:"open"`
	High     num    `json:"high"`
	Low      num    `json:"low"`
	Close    num    `json:"close"`
	Symbol   string `json:"symbol"`
}

type frame struct {
	MsgType string        `json:"msg_type"`
	Error   *apiError     `json:"error"`
	Tick    *tickFrame    `json:"tick"`
	Candles []candleFrame `json:"candles"`
	OHLC    *ohlcFrame    `json:"ohlc"`
}

func decodeFrame(msg []byte) (frame, error) {
	var f frame
	err := sonic.Unmarshal(msg, &f)
	return f, err
}

func (t *tickFrame) tick(symbol string) models.Tick {
	return models.Tick{
		Symbol: symbol,
		Price:  float64(t.Quote),
		Time:   time.Unix(t.Epoch, 0).UTC(),
	}
}

func (c candleFrame) candle() models.Candle {
	return models.Candle{
		Time:  time.Unix(c.Epoch, 0).UTC(),
		Open:  float64(c.Open),
		High:  float64(c.High),
		Low:   float64(c.Low),
		Close: float64(c.Close),
	}
}

func (o *ohlcFrame) candle() models.Candle {
	return models.Candle{
		Time:  time.Unix(o.OpenTime, 0).UTC(),
		Open:  float64(o.Open),
		High:  float64(o.High),
		Low:   float64(o.Low),
		Close: float64(o.Close),
	}
}
