package domain

// Vehicle - транспорт водителя
type Vehicle struct {
	Type   string `json:"type,omitempty"`
	Number string `json:"number,omitempty"`
	Model  string `json:"model,omitempty"`
	Color  string `json:"color,omitempty"`
}

// Driver - водитель (хранится во внешнем сторе)
type Driver struct {
	ID             string
	Name           string
	Phone          string
	Email          string
	Vehicle        Vehicle
	IsAvailable    bool
	IsVerified     bool
	CurrentOrderID *string
	ConnectionID   *string
	Location       *Location
}

// Details - снимок для order.driverDetails
func (d *Driver) Details() DriverDetails {
	return DriverDetails{
		Name:          d.Name,
		Phone:         d.Phone,
		VehicleNumber: d.Vehicle.Number,
	}
}

// DriverPublicInfo - то, что видит клиент про водителя
type DriverPublicInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	VehicleNumber string `json:"vehicleNumber"`
}

func (d *Driver) PublicInfo() DriverPublicInfo {
	return DriverPublicInfo{
		ID:            d.ID,
		Name:          d.Name,
		Phone:         d.Phone,
		VehicleNumber: d.Vehicle.Number,
	}
}
