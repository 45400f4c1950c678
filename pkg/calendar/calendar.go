// Package calendar 提供排班周期内的日期划分
package calendar

import (
	"fmt"
	"sort"
	"time"

	apperrors "github.com/paiban/callrota/pkg/errors"
)

// Weekday 以周一为 0 的星期编号
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// DaysPerWeek 每周天数
const DaysPerWeek = 7

var weekdayNames = [...]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// String 返回星期名称
func (w Weekday) String() string {
	if w < Monday || w > Sunday {
		return fmt.Sprintf("weekday(%d)", int(w))
	}
	return weekdayNames[w]
}

// IsWeekend 是否为周六或周日
func (w Weekday) IsWeekend() bool {
	return w == Saturday || w == Sunday
}

// ParseWeekday 解析星期名称
func ParseWeekday(s string) (Weekday, error) {
	for i, name := range weekdayNames {
		if name == s {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("未知的星期: %q", s)
}

// FromTime 将 time.Weekday（周日为 0）转换为以周一为 0 的编号
func FromTime(w time.Weekday) Weekday {
	return Weekday((int(w) + 6) % DaysPerWeek)
}

// Window 连续的天数区间 [Start, End)
type Window struct {
	Index int `json:"index"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len 区间长度
func (w Window) Len() int { return w.End - w.Start }

// Calendar 排班日历，创建后只读
type Calendar struct {
	start    time.Time
	horizon  int
	offset   Weekday
	working  []int
	weekends []int
	holiday  map[int]bool
}

// New 创建日历；节假日在此处从工作日移入周末/节假日集合，
// 必须先于任何比例计算完成
func New(start time.Time, horizon int, holidays []int) (*Calendar, error) {
	if horizon <= 0 {
		return nil, apperrors.Configuration("排班天数必须为正数，当前为 %d", horizon)
	}

	c := &Calendar{
		start:   time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		horizon: horizon,
		offset:  FromTime(start.Weekday()),
		holiday: make(map[int]bool, len(holidays)),
	}

	for _, h := range holidays {
		if h < 0 || h >= horizon {
			return nil, apperrors.Configuration("节假日第 %d 天超出排班范围 [0, %d)", h, horizon)
		}
		if c.Weekday(h).IsWeekend() {
			return nil, apperrors.Configuration("节假日第 %d 天不是工作日", h)
		}
		if c.holiday[h] {
			return nil, apperrors.Configuration("节假日第 %d 天重复", h)
		}
		c.holiday[h] = true
	}

	for d := 0; d < horizon; d++ {
		if c.Weekday(d).IsWeekend() || c.holiday[d] {
			c.weekends = append(c.weekends, d)
		} else {
			c.working = append(c.working, d)
		}
	}

	return c, nil
}

// Horizon 排班天数
func (c *Calendar) Horizon() int { return c.horizon }

// Start 第 0 天对应的日期
func (c *Calendar) Start() time.Time { return c.start }

// Date 返回第 d 天的日期
func (c *Calendar) Date(d int) time.Time {
	return c.start.AddDate(0, 0, d)
}

// Weekday 返回第 d 天是星期几
func (c *Calendar) Weekday(d int) Weekday {
	return Weekday((int(c.offset) + d) % DaysPerWeek)
}

// InRange 第 d 天是否在排班范围内
func (c *Calendar) InRange(d int) bool {
	return d >= 0 && d < c.horizon
}

// WorkingDays 工作日（已去除节假日），升序
func (c *Calendar) WorkingDays() []int {
	return append([]int(nil), c.working...)
}

// WeekendsAndHolidays 周末与节假日，升序
func (c *Calendar) WeekendsAndHolidays() []int {
	return append([]int(nil), c.weekends...)
}

// IsWorkingDay 第 d 天是否为工作日
func (c *Calendar) IsWorkingDay(d int) bool {
	return c.InRange(d) && !c.Weekday(d).IsWeekend() && !c.holiday[d]
}

// IsWeekendOrHoliday 第 d 天是否为周末或节假日
func (c *Calendar) IsWeekendOrHoliday(d int) bool {
	return c.InRange(d) && !c.IsWorkingDay(d)
}

// IsHoliday 第 d 天是否为节假日
func (c *Calendar) IsHoliday(d int) bool {
	return c.holiday[d]
}

// DaysOf 返回排班范围内所有星期为 w 的天，只包含 < horizon 的下标
func (c *Calendar) DaysOf(w Weekday) []int {
	first := (int(w) - int(c.offset) + DaysPerWeek) % DaysPerWeek
	var days []int
	for d := first; d < c.horizon; d += DaysPerWeek {
		days = append(days, d)
	}
	return days
}

// WorkingDaysOf 返回星期为 w 的工作日（节假日除外）
func (c *Calendar) WorkingDaysOf(w Weekday) []int {
	var days []int
	for _, d := range c.DaysOf(w) {
		if c.IsWorkingDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// Weeks 将排班周期按 7 天切分，末尾不足 7 天的部分单独成为一个区间
func (c *Calendar) Weeks() []Window {
	var windows []Window
	for start := 0; start < c.horizon; start += DaysPerWeek {
		end := start + DaysPerWeek
		if end > c.horizon {
			end = c.horizon
		}
		windows = append(windows, Window{Index: len(windows), Start: start, End: end})
	}
	return windows
}

// FullWeeks 只返回完整的 7 天区间，末尾不足一周的部分不计入
func (c *Calendar) FullWeeks() []Window {
	weeks := c.Weeks()
	if n := len(weeks); n > 0 && weeks[n-1].Len() < DaysPerWeek {
		weeks = weeks[:n-1]
	}
	return weeks
}

// Holidays 节假日列表，升序
func (c *Calendar) Holidays() []int {
	days := make([]int, 0, len(c.holiday))
	for d := range c.holiday {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}
