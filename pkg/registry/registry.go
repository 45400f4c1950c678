package registry

import (
	"github.com/paiban/callrota/pkg/calendar"
	apperrors "github.com/paiban/callrota/pkg/errors"
	"github.com/paiban/callrota/pkg/model"
)

// ClaimRef 已解析为下标的认领
type ClaimRef struct {
	Day   int
	Shift int
}

// Resident 住院医师，创建后不可修改
type Resident struct {
	index           int
	name            string
	vacation        DaySet
	highAcuity      bool
	fixedCommitment bool
	override        *float64
	claims          []ClaimRef
}

// Index 在注册表中的下标
func (r *Resident) Index() int { return r.index }

// Name 姓名
func (r *Resident) Name() string { return r.name }

// HighAcuity 是否在高强度（创伤）轮转
func (r *Resident) HighAcuity() bool { return r.highAcuity }

// FixedCommitment 是否有固定的每周学术半天
func (r *Resident) FixedCommitment() bool { return r.fixedCommitment }

// OnVacation 第 d 天是否休假
func (r *Resident) OnVacation(d int) bool { return r.vacation.Contains(d) }

// VacationCount 休假天数（已去除不排班日）
func (r *Resident) VacationCount() int { return r.vacation.Len() }

// VacationDays 休假日，升序
func (r *Resident) VacationDays() []int { return r.vacation.Sorted() }

// Override 手工指定的期望班次数
func (r *Resident) Override() (float64, bool) {
	if r.override == nil {
		return 0, false
	}
	return *r.override, true
}

// Claims 认领列表，保持配置顺序
func (r *Resident) Claims() []ClaimRef {
	return append([]ClaimRef(nil), r.claims...)
}

// Registry 住院医师注册表；姓名与班次名在此一次性解析为下标
type Registry struct {
	cal       *calendar.Calendar
	residents []*Resident
	byName    map[string]int
	shifts    []string
	shiftIdx  map[string]int
	nofill    DaySet
}

// New 校验配置并创建注册表；所有配置错误都在建模之前返回
func New(cfg *model.SchedulingConfig, cal *calendar.Calendar) (*Registry, error) {
	var ve apperrors.ValidationErrors

	reg := &Registry{
		cal:      cal,
		byName:   make(map[string]int, len(cfg.Residents)),
		shifts:   append([]string(nil), cfg.Shifts...),
		shiftIdx: make(map[string]int, len(cfg.Shifts)),
	}

	if len(reg.shifts) == 0 {
		ve.Add("shifts", "至少需要一个班次")
	}
	for i, s := range reg.shifts {
		if s == "" {
			ve.Addf("shifts", "第 %d 个班次名称为空", i)
			continue
		}
		if _, dup := reg.shiftIdx[s]; dup {
			ve.Addf("shifts", "班次 %q 重复", s)
			continue
		}
		reg.shiftIdx[s] = i
	}

	for _, d := range cfg.NoFill {
		if !cal.InRange(d) {
			ve.Addf("nofill", "第 %d 天超出排班范围 [0, %d)", d, cal.Horizon())
		}
	}
	reg.nofill = NewDaySet(cfg.NoFill...)

	for i, rc := range cfg.Residents {
		field := "residents[" + rc.Name + "]"
		if rc.Name == "" {
			ve.Addf("residents", "第 %d 位住院医师姓名为空", i)
			continue
		}
		if _, dup := reg.byName[rc.Name]; dup {
			ve.Addf(field, "住院医师 %q 重复", rc.Name)
			continue
		}

		for _, d := range rc.VacationDays {
			if !cal.InRange(d) {
				ve.Addf(field+".vacation_days", "第 %d 天超出排班范围", d)
			}
		}

		vacation := NewDaySet(rc.VacationDays...)
		// 休假日与不排班日重叠的部分不计入休假
		vacation, err := vacation.Difference(vacation.Intersect(reg.nofill))
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "休假日去除不排班日失败")
		}

		res := &Resident{
			index:           len(reg.residents),
			name:            rc.Name,
			vacation:        vacation,
			highAcuity:      rc.OnHighAcuity,
			fixedCommitment: rc.OnFixedCommitment,
		}
		if rc.ShiftOverride != nil {
			v := *rc.ShiftOverride
			res.override = &v
		}

		for _, c := range rc.Claims {
			if !cal.InRange(c.Day) {
				ve.Addf(field+".claimed", "认领的第 %d 天超出排班范围", c.Day)
				continue
			}
			shift, ok := reg.shiftIdx[c.Shift]
			if !ok {
				ve.Addf(field+".claimed", "认领的班次 %q 不存在", c.Shift)
				continue
			}
			res.claims = append(res.claims, ClaimRef{Day: c.Day, Shift: shift})
		}

		reg.byName[rc.Name] = res.index
		reg.residents = append(reg.residents, res)
	}

	if len(reg.residents) == 0 && !ve.HasErrors() {
		ve.Add("residents", "至少需要一位住院医师")
	}

	if ve.HasErrors() {
		return nil, ve.ToConfigurationError()
	}
	return reg, nil
}

// Calendar 排班日历
func (r *Registry) Calendar() *calendar.Calendar { return r.cal }

// Len 住院医师人数
func (r *Registry) Len() int { return len(r.residents) }

// Residents 所有住院医师，按配置顺序
func (r *Registry) Residents() []*Resident {
	return append([]*Resident(nil), r.residents...)
}

// Resident 按下标获取
func (r *Registry) Resident(i int) *Resident { return r.residents[i] }

// Lookup 按姓名查找
func (r *Registry) Lookup(name string) (*Resident, bool) {
	i, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.residents[i], true
}

// Shifts 班次名称，按顺序
func (r *Registry) Shifts() []string {
	return append([]string(nil), r.shifts...)
}

// NumShifts 每天班次数
func (r *Registry) NumShifts() int { return len(r.shifts) }

// ShiftIndex 班次名称对应的下标
func (r *Registry) ShiftIndex(label string) (int, bool) {
	i, ok := r.shiftIdx[label]
	return i, ok
}

// FirstShift 白班下标
func (r *Registry) FirstShift() int { return 0 }

// LastShift 夜班下标
func (r *Registry) LastShift() int { return len(r.shifts) - 1 }

// IsNoFill 第 d 天是否为不排班日
func (r *Registry) IsNoFill(d int) bool { return r.nofill.Contains(d) }

// NoFillDays 不排班日，升序
func (r *Registry) NoFillDays() []int { return r.nofill.Sorted() }

// FillableDays 需要排班的天数
func (r *Registry) FillableDays() int {
	return r.cal.Horizon() - r.nofill.Len()
}
