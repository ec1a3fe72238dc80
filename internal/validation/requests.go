package validation

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/iudanet/custadmin/internal/models"
	"github.com/iudanet/custadmin/pkg/api"
)

// byFunc превращает проверку строки в правило ozzo
func byFunc(check func(string) error) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, _ := value.(string)
		return check(s)
	})
}

func roleNames() []interface{} {
	out := make([]interface{}, 0, len(models.Roles))
	for _, r := range models.Roles {
		out = append(out, string(r))
	}
	return out
}

// Register проверяет запрос самостоятельной регистрации
func Register(r *api.RegisterRequest) error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Username, validation.Required, byFunc(ValidateUsername)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, byFunc(ValidatePassword)),
	)
}

// Login проверяет только наличие полей; неверные значения это invalid credentials
func Login(r *api.LoginRequest) error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// CreateUser проверяет аккаунт, создаваемый администратором
func CreateUser(r *api.CreateUserRequest) error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Username, validation.Required, byFunc(ValidateUsername)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, byFunc(ValidatePassword)),
		validation.Field(&r.Role, validation.Required, validation.In(roleNames()...)),
		validation.Field(&r.SupervisorID, is.UUID),
	)
}

// UpdateUser проверяет частичное обновление аккаунта
func UpdateUser(r *api.UpdateUserRequest) error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&r.Role, validation.NilOrNotEmpty, validation.In(roleNames()...)),
		validation.Field(&r.SupervisorID, is.UUID),
	)
}

// CreateAPIKey проверяет запрос на создание ключа
func CreateAPIKey(r *api.CreateAPIKeyRequest) error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
	)
}

// Customer проверяет полные данные клиента. Физлицу нужны имя и фамилия,
// юрлицу название компании.
func Customer(r *api.CustomerRequest) error {
	nameRules := []validation.Rule{validation.Length(0, 200)}
	companyRules := []validation.Rule{validation.Length(0, 200)}

	switch models.CustomerType(r.Type) {
	case models.CustomerPersonal:
		nameRules = append([]validation.Rule{validation.Required}, nameRules...)
	case models.CustomerJuristic:
		companyRules = append([]validation.Rule{validation.Required}, companyRules...)
	}

	return validation.ValidateStruct(r,
		validation.Field(&r.Type, validation.Required,
			validation.In(string(models.CustomerPersonal), string(models.CustomerJuristic))),
		validation.Field(&r.FirstName, nameRules...),
		validation.Field(&r.LastName, nameRules...),
		validation.Field(&r.CompanyName, companyRules...),
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.Phone, byFunc(phoneRule)),
		validation.Field(&r.Status, validation.In(statusNames()...)),
		validation.Field(&r.MembershipTier, validation.Length(0, 32)),
		validation.Field(&r.PortfolioSize, validation.Min(0.0)),
	)
}

func statusNames() []interface{} {
	out := make([]interface{}, 0, len(models.CustomerStatuses))
	for _, s := range models.CustomerStatuses {
		out = append(out, string(s))
	}
	return out
}

// Address проверяет адрес клиента. Страна в ISO 3166-1 alpha-2.
func Address(r *api.AddressRequest) error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Type, validation.Required,
			validation.In(models.AddressRegistered, models.AddressMailing, models.AddressHQ)),
		validation.Field(&r.AddressLine1, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.AddressLine2, validation.Length(0, 255)),
		validation.Field(&r.City, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.State, validation.Length(0, 128)),
		validation.Field(&r.District, validation.Length(0, 128)),
		validation.Field(&r.SubDistrict, validation.Length(0, 128)),
		validation.Field(&r.ZipCode, validation.Length(0, 16)),
		validation.Field(&r.Country, validation.Required, is.CountryCode2),
	)
}

// Identity validates a document. Тайские NATIONAL_ID проверяются по контрольной цифре.
func Identity(r *api.IdentityRequest) error {
	numberRules := []validation.Rule{validation.Required, validation.Length(1, 64)}
	if r.Type == models.IdentityNationalID && r.IssuanceCountry == "TH" {
		numberRules = append(numberRules, byFunc(ValidateThaiID))
	}

	return validation.ValidateStruct(r,
		validation.Field(&r.Type, validation.Required,
			validation.In(models.IdentityNationalID, models.IdentityPassport, models.IdentityTaxID)),
		validation.Field(&r.Number, numberRules...),
		validation.Field(&r.IssuanceCountry, validation.Required, is.CountryCode2),
	)
}

// Relationship проверяет связь с другим клиентом
func Relationship(r *api.RelationshipRequest) error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ToCustomerID, validation.Required, is.UUID),
		validation.Field(&r.Role, validation.Required, validation.Length(1, 64)),
	)
}

// Consent проверяет решение о согласии; is_granted обязателен явно
func Consent(r *api.ConsentRequest) error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Topic, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Version, validation.Required, validation.Length(1, 32)),
		validation.Field(&r.IsGranted, validation.NotNil),
	)
}

// Post проверяет данные поста
func Post(r *api.PostRequest) error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Status, validation.In(string(models.PostDraft), string(models.PostPublished))),
	)
}

func phoneRule(s string) error {
	if s == "" {
		return nil
	}
	_, err := NormalizePhone(s, DefaultRegion)
	return err
}
