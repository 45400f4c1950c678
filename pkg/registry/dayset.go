// Package registry 保存住院医师的静态属性，创建后只读
package registry

import (
	"fmt"
	"sort"
)

// DaySet 天下标集合
type DaySet struct {
	days map[int]struct{}
}

// NewDaySet 创建集合，重复的天会被合并
func NewDaySet(days ...int) DaySet {
	s := DaySet{days: make(map[int]struct{}, len(days))}
	for _, d := range days {
		s.days[d] = struct{}{}
	}
	return s
}

// Contains 是否包含第 d 天
func (s DaySet) Contains(d int) bool {
	_, ok := s.days[d]
	return ok
}

// Len 集合大小
func (s DaySet) Len() int {
	return len(s.days)
}

// Remove 删除第 d 天；不在集合中时返回错误而不是静默忽略
func (s *DaySet) Remove(d int) error {
	if _, ok := s.days[d]; !ok {
		return fmt.Errorf("第 %d 天不在集合中", d)
	}
	delete(s.days, d)
	return nil
}

// Intersect 交集
func (s DaySet) Intersect(o DaySet) DaySet {
	out := NewDaySet()
	for d := range s.days {
		if o.Contains(d) {
			out.days[d] = struct{}{}
		}
	}
	return out
}

// Difference 返回 s 去掉 o 后的新集合；o 中的每一天都必须属于 s
func (s DaySet) Difference(o DaySet) (DaySet, error) {
	out := s.Clone()
	for _, d := range o.Sorted() {
		if err := out.Remove(d); err != nil {
			return DaySet{}, err
		}
	}
	return out, nil
}

// Clone 深拷贝
func (s DaySet) Clone() DaySet {
	out := DaySet{days: make(map[int]struct{}, len(s.days))}
	for d := range s.days {
		out.days[d] = struct{}{}
	}
	return out
}

// Sorted 升序返回所有天
func (s DaySet) Sorted() []int {
	days := make([]int, 0, len(s.days))
	for d := range s.days {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}
