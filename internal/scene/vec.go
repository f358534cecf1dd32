package scene

import "golang.org/x/image/math/f64"

// Add returns a + b
func Add(a, b f64.Vec3) f64.Vec3 {
	return f64.Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// Sub returns a - b
func Sub(a, b f64.Vec3) f64.Vec3 {
	return f64.Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// Mul multiplies component-wise
func Mul(a, b f64.Vec3) f64.Vec3 {
	return f64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

// Div divides component-wise; division by zero yields zero
func Div(a, b f64.Vec3) f64.Vec3 {
	var out f64.Vec3
	for i := range out {
		if b[i] != 0 {
			out[i] = a[i] / b[i]
		}
	}
	return out
}

// Scale multiplies every component by s
func Scale(a f64.Vec3, s float64) f64.Vec3 {
	return f64.Vec3{a[0] * s, a[1] * s, a[2] * s}
}
