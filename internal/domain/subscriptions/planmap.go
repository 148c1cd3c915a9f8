package subscriptions

// planEntry mapea un price/plan id del procesador a (rol, intervalo).
type planEntry struct {
	Role     Role
	Interval Interval
}

// planTable es la tabla estática price id → tier interno. Un id desconocido
// NO rechaza el evento: cae abierto al tier menos privilegiado (free, sin
// intervalo) para no trabar la entrega por un plan nuevo aún no mapeado.
var planTable = map[string]planEntry{
	"price_owner_monthly": {Role: RoleOwner, Interval: IntervalMonthly},
	"price_owner_yearly":  {Role: RoleOwner, Interval: IntervalYearly},

	"price_vet_monthly": {Role: RoleVeterinarian, Interval: IntervalMonthly},
	"price_vet_yearly":  {Role: RoleVeterinarian, Interval: IntervalYearly},

	"price_groomer_monthly": {Role: RoleGroomer, Interval: IntervalMonthly},
	"price_groomer_yearly":  {Role: RoleGroomer, Interval: IntervalYearly},

	"price_petsitter_monthly": {Role: RolePetsitter, Interval: IntervalMonthly},
	"price_petsitter_yearly":  {Role: RolePetsitter, Interval: IntervalYearly},

	"price_boarding_monthly": {Role: RoleBoarding, Interval: IntervalMonthly},
	"price_boarding_yearly":  {Role: RoleBoarding, Interval: IntervalYearly},

	"price_trainer_monthly": {Role: RoleTrainer, Interval: IntervalMonthly},
	"price_trainer_yearly":  {Role: RoleTrainer, Interval: IntervalYearly},
}

// ResolvePlan devuelve (rol, intervalo) para un price id del procesador.
func ResolvePlan(priceID string) (Role, Interval) {
	if e, ok := planTable[priceID]; ok {
		return e.Role, e.Interval
	}
	return RoleFree, IntervalNone
}
