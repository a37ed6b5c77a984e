// Package pca9685 drives servos through a PCA9685 16-channel PWM controller
// on I2C, using periph.io.
package pca9685
