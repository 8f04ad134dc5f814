package fieldunit

import (
	"fmt"

	"gobot.io/x/gobot/v2"
	"gobot.io/x/gobot/v2/drivers/gpio"
	"gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/raspi"

	"github.com/norian27/Smart-Greenhouse-System/internal/actuator"
)

// HardwarePins names the header pins a unit's peripherals hang off.
type HardwarePins struct {
	Relay     string `yaml:"relay"`
	Servo     string `yaml:"servo"`
	FlowMeter string `yaml:"flow_meter"`
}

// relayPin adapts a gobot relay driver to the Pin interface.
type relayPin struct {
	driver *gpio.RelayDriver
}

func (p relayPin) Set(high bool) error {
	if high {
		return p.driver.On()
	}
	return p.driver.Off()
}

// servoPin adapts a gobot servo driver to the ServoPin interface.
type servoPin struct {
	driver *gpio.ServoDriver
}

func (p servoPin) Move(degrees int) error {
	return p.driver.Move(uint8(degrees))
}

// sht2xReader samples temperature and humidity from an SHT2x sensor.
type sht2xReader struct {
	driver *i2c.SHT2xDriver
}

func (r sht2xReader) Read() (map[string]float64, error) {
	temp, err := r.driver.Temperature()
	if err != nil {
		return nil, fmt.Errorf("reading temperature: %w", err)
	}
	humidity, err := r.driver.Humidity()
	if err != nil {
		return nil, fmt.Errorf("reading humidity: %w", err)
	}
	return map[string]float64{
		"temperature": float64(temp),
		"humidity":    float64(humidity),
	}, nil
}

// NewActuatorHardware builds the driver stack for an actuator unit on
// a Raspberry Pi: relay, servo for windows, and the flow meter wired
// into the pulse counter for sprinklers. The returned robot must be
// started before the driver is used.
func NewActuatorHardware(name string, kind actuator.Kind, pins HardwarePins, counter *PulseCounter) (Driver, *gobot.Robot) {
	adaptor := raspi.NewAdaptor()
	relay := gpio.NewRelayDriver(adaptor, pins.Relay)
	devices := []gobot.Device{relay}

	var driver Driver = NewRelay(relayPin{relay})
	if kind.Angled() && pins.Servo != "" {
		servo := gpio.NewServoDriver(adaptor, pins.Servo)
		devices = append(devices, servo)
		driver = NewWindowDrive(relayPin{relay}, servoPin{servo})
	}

	work := func() {}
	if kind.Metered() && pins.FlowMeter != "" {
		meter := gpio.NewButtonDriver(adaptor, pins.FlowMeter)
		devices = append(devices, meter)
		work = func() {
			// Each meter edge arrives as a button push event; the
			// counter debounces and counts it.
			meter.On(gpio.ButtonPush, func(interface{}) {
				counter.OnEdge()
			})
		}
	}

	robot := gobot.NewRobot(name, []gobot.Connection{adaptor}, devices, work)
	return driver, robot
}

// NewSensorHardware builds the sampling stack for a sensor unit: an
// SHT2x temperature/humidity sensor on the I2C bus.
func NewSensorHardware(name string) (SensorReader, *gobot.Robot) {
	adaptor := raspi.NewAdaptor()
	sht := i2c.NewSHT2xDriver(adaptor)
	robot := gobot.NewRobot(name, []gobot.Connection{adaptor}, []gobot.Device{sht}, func() {})
	return sht2xReader{driver: sht}, robot
}
